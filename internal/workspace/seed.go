package workspace

// Seed returns the fixed starter workspace used on first run, after a
// workspace reset, and whenever the persisted snapshot is absent or
// malformed.
func Seed() Tree {
	welcome := NewFile(
		"welcome.md",
		"/Documents/welcome.md",
		"text/markdown",
		[]byte("# Welcome\n\nUpload documents and images, then request an analysis "+
			"or apply a smart tag to an image to propagate it across the workspace.\n"),
	)
	return Tree{
		NewFolder("Documents", "/Documents", welcome),
		NewFolder("Images", "/Images"),
	}
}

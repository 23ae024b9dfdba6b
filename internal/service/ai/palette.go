package ai

// palette holds display colors assigned to detections by class index.
var palette = []string{
	"gold",
	"red",
	"deepskyblue",
	"limegreen",
	"orange",
	"magenta",
	"cyan",
	"yellow",
	"hotpink",
	"springgreen",
	"dodgerblue",
	"tomato",
}

// ColorFor returns the display color for a class index. Any int maps to a
// palette entry, negative ones included.
func ColorFor(class int) string {
	n := len(palette)
	return palette[(class%n+n)%n]
}

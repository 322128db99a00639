package postprocess

// Labels is the output order of the positioning classifier. Index i of the
// model output belongs to Labels[i].
var Labels = []string{
	"chin_high",
	"chin_low",
	"pos_forward",
	"pos_backward",
	"head_tilt",
	"head_rotate",
	"tongue_fail",
	"slumped_pos",
	"movement",
	"no_bite_block",
}

// DefaultLabels returns a copy of Labels so callers can keep their own list.
func DefaultLabels() []string {
	out := make([]string, len(Labels))
	copy(out, Labels)
	return out
}

func IsLabel(name string) bool {
	for _, l := range Labels {
		if l == name {
			return true
		}
	}
	return false
}

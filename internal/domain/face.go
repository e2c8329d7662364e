package domain

import "fmt"

// Region is a face bounding box in source image pixels.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Area returns the box area; degenerate boxes have zero area.
func (r Region) Area() int {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Face is one detected face with its descriptor.
type Face struct {
	Embedding  Embedding
	Region     Region
	Confidence float64
}

// SelectionPolicy picks exactly one face when a backend reports several.
type SelectionPolicy string

const (
	// SelectLargest keeps the face with the biggest bounding box.
	SelectLargest SelectionPolicy = "largest"
	// SelectFirst trusts the backend ordering.
	SelectFirst SelectionPolicy = "first"
	// SelectConfidence keeps the face the detector is most confident about.
	SelectConfidence SelectionPolicy = "confidence"
)

// DefaultSelectionPolicy is used when none is configured.
const DefaultSelectionPolicy = SelectLargest

// ParseSelectionPolicy validates a configured policy name. Empty means default.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	switch p := SelectionPolicy(s); p {
	case "":
		return DefaultSelectionPolicy, nil
	case SelectLargest, SelectFirst, SelectConfidence:
		return p, nil
	default:
		return "", fmt.Errorf("unknown face selection policy %q", s)
	}
}

// Select returns the chosen face and its position in faces.
// Ties keep the earliest face, so the result is deterministic for a given backend response.
func (p SelectionPolicy) Select(faces []Face) (Face, int, bool) {
	if len(faces) == 0 {
		return Face{}, -1, false
	}

	best := 0
	for i := 1; i < len(faces); i++ {
		switch p {
		case SelectLargest:
			if faces[i].Region.Area() > faces[best].Region.Area() {
				best = i
			}
		case SelectConfidence:
			if faces[i].Confidence > faces[best].Confidence {
				best = i
			}
		default:
			// SelectFirst and unknown policies keep backend order.
		}
	}
	return faces[best], best, true
}

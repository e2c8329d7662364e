package domain

// MatchConfig is the process-wide configuration triple. It is built once at startup
// and passed by value; nothing mutates it afterwards.
type MatchConfig struct {
	Model     string
	Detector  string
	Threshold float64
	// Epsilon is added to vector norms before division.
	Epsilon float64
	// Dimensions is the expected extractor output length; 0 skips the check.
	Dimensions int
}

// DefaultMatchConfig returns the configuration tuned for Facenet512 with the OpenCV detector.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		Model:      "Facenet512",
		Detector:   "opencv",
		Threshold:  0.30,
		Epsilon:    1e-8,
		Dimensions: 512,
	}
}

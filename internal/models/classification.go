package models

// ClassificationInput is a single athlete entry submitted for medal classification
type ClassificationInput struct {
	Age        float64 `json:"age" validate:"gte=0,lte=120"`
	Rank       float64 `json:"rank" validate:"gte=0"`
	Gender     string  `json:"gender" validate:"required"`
	NOC        string  `json:"noc" validate:"required"`
	Discipline string  `json:"discipline" validate:"required"`
	Sport      string  `json:"sport" validate:"required"`
}

// LabelProbability pairs a class label with its model probability
type LabelProbability struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// ClassificationResult is the ranked classifier output
type ClassificationResult struct {
	Label   string             `json:"label"`
	Ranking []LabelProbability `json:"ranking"` // Sorted by probability, descending
}

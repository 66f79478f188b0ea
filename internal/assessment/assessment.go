package assessment

import (
	"errors"
	"math"
)

// Status labels the BMI band a person falls into.
type Status string

const (
	Underweight Status = "Underweight"
	Fit         Status = "Fit"
	Overweight  Status = "Overweight"
	Obese       Status = "Obese"
)

// Result is the outcome of a fitness assessment.
type Result struct {
	BMI             float64  `json:"bmi"`
	Status          Status   `json:"status"`
	Score           int      `json:"score"`
	Recommendations []string `json:"recommendations"`
}

var recommendations = map[Status][]string{
	Underweight: {
		"Increase calorie intake with nutrient-rich foods",
		"Add strength training exercises",
		"Eat protein-rich snacks",
		"Ensure 7-8 hours of sleep",
	},
	Fit: {
		"Maintain current workout routine",
		"Continue balanced diet",
		"Stay hydrated with 8-10 glasses of water",
		"Incorporate flexibility training like yoga",
	},
	Overweight: {
		"Incorporate 30 minutes of cardio daily",
		"Reduce processed sugar and fried foods",
		"Add high-protein meals to diet",
		"Walk at least 8,000 steps daily",
	},
	Obese: {
		"Consult a fitness coach for tailored program",
		"Start with low-impact cardio (walking, swimming)",
		"Gradually reduce portion sizes",
		"Increase vegetable intake significantly",
	},
}

// Evaluate computes a BMI-based fitness assessment. Height is in centimeters,
// weight in kilograms. The BMI is rounded to one decimal before banding.
func Evaluate(heightCm, weightKg float64) (Result, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return Result{}, errors.New("height and weight must be positive")
	}

	h := heightCm / 100.0
	bmi := math.Round(weightKg/(h*h)*10) / 10

	var (
		status Status
		score  int
	)
	switch {
	case bmi < 18.5:
		status, score = Underweight, 60
	case bmi < 25:
		status, score = Fit, 85
	case bmi < 30:
		status, score = Overweight, 70
	default:
		status, score = Obese, 50
	}

	return Result{
		BMI:             bmi,
		Status:          status,
		Score:           score,
		Recommendations: recommendations[status],
	}, nil
}

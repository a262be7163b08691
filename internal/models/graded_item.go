package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// Category groups graded items for progression rules.
type Category string

const (
	// CategoryFormative marks continuous assessment work.
	CategoryFormative Category = "Formative"
	// CategorySummative marks end-of-unit assessment work.
	CategorySummative Category = "Summative"
	// CategoryModule marks untyped module results.
	CategoryModule Category = "Module"
)

// Valid returns true when the category is a supported value.
func (c Category) Valid() bool {
	switch c {
	case CategoryFormative, CategorySummative, CategoryModule:
		return true
	default:
		return false
	}
}

// ParseCategory maps a case-insensitive label onto a category. An empty label
// is treated as an untyped module.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "formative":
		return CategoryFormative, nil
	case "summative":
		return CategorySummative, nil
	case "module", "":
		return CategoryModule, nil
	}
	return "", appErrors.Clone(appErrors.ErrInvalidGradeData, "unknown category "+raw)
}

// GradedItem is a single scored unit of work inside a course.
type GradedItem struct {
	Name     string   `db:"name" json:"name" validate:"required"`
	Score    float64  `db:"score" json:"score" validate:"gte=0,lte=100"`
	Weight   float64  `db:"weight" json:"weight" validate:"gte=0"`
	Category Category `db:"category" json:"category"`
}

var itemValidator = validator.New()

// NewGradedItem validates and constructs a graded item.
func NewGradedItem(name string, score, weight float64, category Category) (GradedItem, error) {
	item := GradedItem{Name: name, Score: score, Weight: weight, Category: category}
	if err := item.Validate(); err != nil {
		return GradedItem{}, err
	}
	return item, nil
}

// Validate checks score and weight bounds and the category.
func (i GradedItem) Validate() error {
	if err := itemValidator.Struct(i); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidGradeData.Code, appErrors.ErrInvalidGradeData.Status, fmt.Sprintf("invalid item %q", i.Name))
	}
	if !i.Category.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidGradeData, fmt.Sprintf("invalid category %q for item %q", i.Category, i.Name))
	}
	return nil
}

// WeightedScore is the item's contribution to its category total.
func (i GradedItem) WeightedScore() float64 {
	return i.Score * i.Weight / 100
}

// Package types provides type definitions for structured data used throughout the opportunity miner.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Judgement is the classifier's structured verdict for one post.
type Judgement struct {
	PainPoints            []string `json:"pain_points"`
	BusinessOpportunities []string `json:"business_opportunities"`
	AutomationIdeas       []string `json:"automation_ideas"`
	ConfidenceScore       int      `json:"confidence_score"` // 1-10 expected, not enforced
	Summary               string   `json:"summary"`
	Category              string   `json:"category" validate:"required,category"`
	SubCategory           string   `json:"sub_category" validate:"required"`

	// Carried through from the source post
	URL           string    `json:"url,omitempty"`
	Title         string    `json:"title,omitempty"`
	PostCreatedAt time.Time `json:"post_created_at,omitempty"`
}

// Annotate copies the identifying fields of the post onto the judgement.
func (j *Judgement) Annotate(post RawPost) {
	j.URL = post.URL
	j.Title = post.Title
	j.PostCreatedAt = post.CreatedAt
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func judgementValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return IsValidCategory(fl.Field().String())
		})
	})
	return validate
}

// ValidateJudgement checks that the category belongs to the taxonomy and the
// sub-category belongs to the chosen category.
func ValidateJudgement(j *Judgement) error {
	if j == nil {
		return fmt.Errorf("judgement is nil")
	}
	if err := judgementValidator().Struct(j); err != nil {
		return fmt.Errorf("invalid judgement: %w", err)
	}
	if !IsValidSubCategory(j.Category, j.SubCategory) {
		return fmt.Errorf("invalid judgement: sub-category %q does not belong to category %q", j.SubCategory, j.Category)
	}
	return nil
}

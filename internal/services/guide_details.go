package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/morchidhub/guide-backend/internal/models"
)

// Bio length bounds, in runes
const (
	MinBioLength = 50
	MaxBioLength = 1000
)

// GuideDetails is the professional information a guide provides at
// registration and when editing their profile
type GuideDetails struct {
	Languages         []string `json:"languages" binding:"required,min=1,dive,required"`
	Specialties       []string `json:"specialties" binding:"required,min=1,dive,required"`
	CitiesCovered     []string `json:"cities_covered" binding:"required,min=1,dive,required"`
	YearsOfExperience int      `json:"years_of_experience" binding:"gte=0"`
	Bio               string   `json:"bio" binding:"required"`
}

// normalize trims every value, drops blanks and duplicates, and checks the rules
func (d GuideDetails) normalize() (GuideDetails, error) {
	out := GuideDetails{
		Languages:         cleanList(d.Languages, false),
		Specialties:       cleanList(d.Specialties, true),
		CitiesCovered:     cleanList(d.CitiesCovered, false),
		YearsOfExperience: d.YearsOfExperience,
		Bio:               strings.TrimSpace(d.Bio),
	}

	if len(out.Languages) == 0 {
		return out, &ValidationError{Field: "languages", Message: "At least one language is required"}
	}
	if len(out.Specialties) == 0 {
		return out, &ValidationError{Field: "specialties", Message: "At least one specialty is required"}
	}
	for _, s := range out.Specialties {
		if !isAllowedSpecialty(s) {
			return out, &ValidationError{
				Field:   "specialties",
				Message: fmt.Sprintf("Invalid specialty %q, allowed: %s", s, strings.Join(models.AllowedSpecialties, ", ")),
			}
		}
	}
	if len(out.CitiesCovered) == 0 {
		return out, &ValidationError{Field: "cities_covered", Message: "At least one city is required"}
	}
	if out.YearsOfExperience < 0 {
		return out, &ValidationError{Field: "years_of_experience", Message: "Years of experience cannot be negative"}
	}
	if n := utf8.RuneCountInString(out.Bio); n < MinBioLength || n > MaxBioLength {
		return out, &ValidationError{
			Field:   "bio",
			Message: fmt.Sprintf("Bio must be between %d and %d characters", MinBioLength, MaxBioLength),
		}
	}

	return out, nil
}

func (d GuideDetails) applyTo(g *models.GuideProfile) {
	g.Languages = d.Languages
	g.Specialties = d.Specialties
	g.CitiesCovered = d.CitiesCovered
	g.YearsOfExperience = d.YearsOfExperience
	g.Bio = d.Bio
}

func cleanList(values []string, lower bool) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if lower {
			v = strings.ToLower(v)
		}
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func isAllowedSpecialty(s string) bool {
	for _, allowed := range models.AllowedSpecialties {
		if s == allowed {
			return true
		}
	}
	return false
}

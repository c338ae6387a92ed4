package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ApprovalStatus is the stored form of a guide's verification gate
type ApprovalStatus string

const (
	StatusPendingApproval ApprovalStatus = "pending_approval"
	StatusApproved        ApprovalStatus = "approved"
	StatusRejected        ApprovalStatus = "rejected"
)

// ApprovalState is the guide verification state.
//
// The zero value is pending. A rejection reason only exists on the rejected
// variant; use PendingApproval, Approved and Rejected to build one.
type ApprovalState struct {
	status ApprovalStatus
	reason string
}

// PendingApproval returns the initial state
func PendingApproval() ApprovalState {
	return ApprovalState{status: StatusPendingApproval}
}

// Approved returns the approved state
func Approved() ApprovalState {
	return ApprovalState{status: StatusApproved}
}

// Rejected returns the rejected state carrying reason
func Rejected(reason string) ApprovalState {
	return ApprovalState{status: StatusRejected, reason: reason}
}

// ParseApprovalState rebuilds a state from its stored columns
func ParseApprovalState(status string, reason string) (ApprovalState, error) {
	switch ApprovalStatus(status) {
	case StatusPendingApproval, "":
		return PendingApproval(), nil
	case StatusApproved:
		return Approved(), nil
	case StatusRejected:
		return Rejected(reason), nil
	default:
		return ApprovalState{}, fmt.Errorf("unknown approval status %q", status)
	}
}

// Status returns the stored status value
func (s ApprovalState) Status() ApprovalStatus {
	if s.status == "" {
		return StatusPendingApproval
	}
	return s.status
}

// RejectionReason returns the reason and whether the state is rejected
func (s ApprovalState) RejectionReason() (string, bool) {
	if s.status != StatusRejected {
		return "", false
	}
	return s.reason, true
}

// IsVerified is true only for the approved state
func (s ApprovalState) IsVerified() bool {
	return s.status == StatusApproved
}

// DocumentKind identifies one of the three verification documents
type DocumentKind string

const (
	DocumentProfilePhoto DocumentKind = "profile_photo"
	DocumentLicensePhoto DocumentKind = "license_photo"
	DocumentCINEPhoto    DocumentKind = "cine_photo"
)

// RequiredDocuments lists the documents a verification submission must carry
var RequiredDocuments = []DocumentKind{DocumentProfilePhoto, DocumentLicensePhoto, DocumentCINEPhoto}

// VerificationDocuments holds opaque storage references for uploaded documents
type VerificationDocuments struct {
	ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
	LicenseCardURL  string `json:"license_card_url,omitempty"`
	CINECardURL     string `json:"cine_card_url,omitempty"`
}

// Complete reports whether all three documents are on file
func (d VerificationDocuments) Complete() bool {
	return d.ProfilePhotoURL != "" && d.LicenseCardURL != "" && d.CINECardURL != ""
}

// Set stores the reference for kind
func (d *VerificationDocuments) Set(kind DocumentKind, ref string) {
	switch kind {
	case DocumentProfilePhoto:
		d.ProfilePhotoURL = ref
	case DocumentLicensePhoto:
		d.LicenseCardURL = ref
	case DocumentCINEPhoto:
		d.CINECardURL = ref
	}
}

// Allowed guide specialties
var AllowedSpecialties = []string{"nature", "culture", "aventure", "gastronomie", "histoire"}

// GuideProfile is the professional profile of a guide account
type GuideProfile struct {
	ID     uuid.UUID
	UserID uuid.UUID

	Languages         []string
	Specialties       []string
	CitiesCovered     []string
	YearsOfExperience int
	Bio               string

	CINENumber           string
	LicenseNumber        string
	HasOfficialLicense   bool
	Documents            VerificationDocuments
	DocumentsSubmittedAt *time.Time

	Approval   ApprovalState
	ReviewedBy *uuid.UUID
	ReviewedAt *time.Time

	Rating   RatingAggregate
	EcoScore int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsVerified is derived from the approval state
func (g *GuideProfile) IsVerified() bool {
	return g.Approval.IsVerified()
}

// GuideRow is the guides table row as scanned by sqlx
type GuideRow struct {
	ID                   uuid.UUID      `db:"id"`
	UserID               uuid.UUID      `db:"user_id"`
	Languages            pq.StringArray `db:"languages"`
	Specialties          pq.StringArray `db:"specialties"`
	CitiesCovered        pq.StringArray `db:"cities_covered"`
	YearsOfExperience    int            `db:"years_of_experience"`
	Bio                  string         `db:"bio"`
	CINENumber           NullString     `db:"cine_number"`
	LicenseNumber        NullString     `db:"license_number"`
	HasOfficialLicense   bool           `db:"has_official_license"`
	ProfilePhotoURL      NullString     `db:"profile_photo_url"`
	LicenseCardURL       NullString     `db:"license_card_url"`
	CINECardURL          NullString     `db:"cine_card_url"`
	DocumentsSubmittedAt NullTime       `db:"documents_submitted_at"`
	ApprovalStatus       string         `db:"approval_status"`
	RejectionReason      NullString     `db:"rejection_reason"`
	IsVerified           bool           `db:"is_verified"`
	ReviewedBy           uuid.NullUUID  `db:"reviewed_by"`
	ReviewedAt           NullTime       `db:"reviewed_at"`
	RatingSum            int64          `db:"rating_sum"`
	TotalReviews         int64          `db:"total_reviews"`
	AverageRating        float64        `db:"average_rating"`
	EcoScore             int            `db:"eco_score"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

// ToProfile converts the row into the domain model
func (r *GuideRow) ToProfile() (*GuideProfile, error) {
	state, err := ParseApprovalState(r.ApprovalStatus, r.RejectionReason.String)
	if err != nil {
		return nil, err
	}

	g := &GuideProfile{
		ID:                 r.ID,
		UserID:             r.UserID,
		Languages:          []string(r.Languages),
		Specialties:        []string(r.Specialties),
		CitiesCovered:      []string(r.CitiesCovered),
		YearsOfExperience:  r.YearsOfExperience,
		Bio:                r.Bio,
		CINENumber:         r.CINENumber.String,
		LicenseNumber:      r.LicenseNumber.String,
		HasOfficialLicense: r.HasOfficialLicense,
		Documents: VerificationDocuments{
			ProfilePhotoURL: r.ProfilePhotoURL.String,
			LicenseCardURL:  r.LicenseCardURL.String,
			CINECardURL:     r.CINECardURL.String,
		},
		Approval:  state,
		Rating:    RatingAggregate{Sum: r.RatingSum, Count: r.TotalReviews},
		EcoScore:  r.EcoScore,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.DocumentsSubmittedAt.Valid {
		t := r.DocumentsSubmittedAt.Time
		g.DocumentsSubmittedAt = &t
	}
	if r.ReviewedBy.Valid {
		id := r.ReviewedBy.UUID
		g.ReviewedBy = &id
	}
	if r.ReviewedAt.Valid {
		t := r.ReviewedAt.Time
		g.ReviewedAt = &t
	}
	return g, nil
}

// RatingAggregate tracks the exact sum and count of a guide's ratings
type RatingAggregate struct {
	Sum   int64
	Count int64
}

// Add returns the aggregate with one more rating
func (a RatingAggregate) Add(rating int) RatingAggregate {
	return RatingAggregate{Sum: a.Sum + int64(rating), Count: a.Count + 1}
}

// Remove returns the aggregate without one rating. Removing from an empty
// aggregate yields the empty aggregate.
func (a RatingAggregate) Remove(rating int) RatingAggregate {
	if a.Count <= 1 {
		return RatingAggregate{}
	}
	return RatingAggregate{Sum: a.Sum - int64(rating), Count: a.Count - 1}
}

// Mean is the unrounded arithmetic mean, 0 when there are no ratings
func (a RatingAggregate) Mean() float64 {
	if a.Count == 0 {
		return 0
	}
	return float64(a.Sum) / float64(a.Count)
}

// DisplayRating rounds a mean to one decimal place
func DisplayRating(mean float64) float64 {
	return math.Round(mean*10) / 10
}

// GuideResponse is the API representation of a guide profile
type GuideResponse struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	FullName           string    `json:"full_name,omitempty"`
	Languages          []string  `json:"languages"`
	Specialties        []string  `json:"specialties"`
	CitiesCovered      []string  `json:"cities_covered"`
	YearsOfExperience  int       `json:"years_of_experience"`
	Bio                string    `json:"bio"`
	HasOfficialLicense bool      `json:"has_official_license"`

	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	IsVerified      bool           `json:"is_verified"`

	AverageRating float64 `json:"average_rating"`
	TotalReviews  int64   `json:"total_reviews"`
	EcoScore      int     `json:"eco_score"`

	// Only populated for the owner and admins
	CINENumber           string                 `json:"cine_number,omitempty"`
	LicenseNumber        string                 `json:"license_number,omitempty"`
	Documents            *VerificationDocuments `json:"documents,omitempty"`
	DocumentsSubmittedAt *time.Time             `json:"documents_submitted_at,omitempty"`
	ReviewedAt           *time.Time             `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewGuideResponse builds the API view. Private fields are copied only when
// includePrivate is set.
func NewGuideResponse(g *GuideProfile, includePrivate bool) *GuideResponse {
	resp := &GuideResponse{
		ID:                 g.ID,
		UserID:             g.UserID,
		Languages:          nonNil(g.Languages),
		Specialties:        nonNil(g.Specialties),
		CitiesCovered:      nonNil(g.CitiesCovered),
		YearsOfExperience:  g.YearsOfExperience,
		Bio:                g.Bio,
		HasOfficialLicense: g.HasOfficialLicense,
		ApprovalStatus:     g.Approval.Status(),
		IsVerified:         g.IsVerified(),
		AverageRating:      DisplayRating(g.Rating.Mean()),
		TotalReviews:       g.Rating.Count,
		EcoScore:           g.EcoScore,
		CreatedAt:          g.CreatedAt,
	}

	if includePrivate {
		if reason, ok := g.Approval.RejectionReason(); ok {
			resp.RejectionReason = &reason
		}
		docs := g.Documents
		resp.Documents = &docs
		resp.CINENumber = g.CINENumber
		resp.LicenseNumber = g.LicenseNumber
		resp.DocumentsSubmittedAt = g.DocumentsSubmittedAt
		resp.ReviewedAt = g.ReviewedAt
	}

	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

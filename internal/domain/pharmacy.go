package domain

import (
	"strings"
	"time"
)

type ApprovalStatus string

const (
	StatusDraft           ApprovalStatus = "draft"
	StatusPendingApproval ApprovalStatus = "pending_approval"
	StatusApproved        ApprovalStatus = "approved"
	StatusRejected        ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type Coordinate struct {
	Lat float64 `dynamodbav:"lat" json:"lat"`
	Lng float64 `dynamodbav:"lng" json:"lng"`
}

type Certificate struct {
	Name       string    `dynamodbav:"name"        json:"name"`
	FileRef    string    `dynamodbav:"file_ref"    json:"file_ref"`
	UploadedAt time.Time `dynamodbav:"uploaded_at" json:"uploaded_at"`
}

type Pharmacy struct {
	PharmacyID      string         `dynamodbav:"pharmacy_id"                json:"pharmacy_id"`
	OwnerID         string         `dynamodbav:"owner_id"                   json:"owner_id"`
	Name            string         `dynamodbav:"name"                       json:"name"`
	LicenseNumber   string         `dynamodbav:"license_number"             json:"license_number"`
	Address         string         `dynamodbav:"address"                    json:"address,omitempty"`
	Phone           string         `dynamodbav:"phone"                      json:"phone,omitempty"`
	Email           string         `dynamodbav:"email"                      json:"email,omitempty"`
	Coordinate      Coordinate     `dynamodbav:"coordinate"                 json:"coordinate"`
	LocationSet     bool           `dynamodbav:"location_set"               json:"location_set"`
	Status          ApprovalStatus `dynamodbav:"status"                     json:"status"`
	IsVerified      bool           `dynamodbav:"is_verified"                json:"is_verified"`
	IsActive        bool           `dynamodbav:"is_active"                  json:"is_active"`
	RejectionReason string         `dynamodbav:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	ApprovedBy      string         `dynamodbav:"approved_by,omitempty"      json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `dynamodbav:"approved_at,omitempty"      json:"approved_at,omitempty"`
	Certificates    []Certificate  `dynamodbav:"certificates"               json:"certificates"`
	CreatedAt       time.Time      `dynamodbav:"created_at"                 json:"created_at"`
	UpdatedAt       time.Time      `dynamodbav:"updated_at"                 json:"updated_at"`
}

// Eligible reports whether the pharmacy may appear in search results.
func (p *Pharmacy) Eligible() bool {
	return p.Status == StatusApproved && p.IsVerified && p.IsActive
}

type PharmacyProfile struct {
	Name          string      `json:"name"           binding:"required"`
	LicenseNumber string      `json:"license_number"`
	Address       string      `json:"address"`
	Phone         string      `json:"phone"`
	Email         string      `json:"email"`
	Coordinate    *Coordinate `json:"coordinate"`
}

func (p PharmacyProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "is required")
	}
	if p.Coordinate != nil && !ValidCoordinate(*p.Coordinate) {
		return invalid("coordinate", "latitude must be within [-90, 90] and longitude within [-180, 180]")
	}
	return nil
}

type RejectRequest struct {
	Reason string `json:"rejection_reason" binding:"required"`
}

type CertificateRequest struct {
	Name    string `json:"name"     binding:"required"`
	FileRef string `json:"file_ref" binding:"required"`
}

type PharmacyStats struct {
	Total    int `json:"total"`
	Draft    int `json:"draft"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/geo"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/metrics"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository"
)

// PharmacyService owns pharmacy profiles and is the only writer of the
// approval status.
type PharmacyService struct {
	pharmacyRepo repository.PharmacyRepository
	logger       *zap.Logger
	now          func() time.Time
}

func NewPharmacyService(pharmacyRepo repository.PharmacyRepository, logger *zap.Logger) *PharmacyService {
	return &PharmacyService{
		pharmacyRepo: pharmacyRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// Create registers a draft profile for the owner.
func (s *PharmacyService) Create(ctx context.Context, ownerID string, profile domain.PharmacyProfile) (*domain.Pharmacy, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &domain.ValidationError{Field: "owner_id", Message: "is required"}
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(profile.LicenseNumber) == "" {
		return nil, &domain.ValidationError{Field: "license_number", Message: "is required"}
	}

	now := s.now().UTC()
	pharmacy := &domain.Pharmacy{
		PharmacyID:    uuid.NewString(),
		OwnerID:       ownerID,
		LicenseNumber: strings.TrimSpace(profile.LicenseNumber),
		Status:        domain.StatusDraft,
		IsActive:      true,
		Certificates:  []domain.Certificate{},
		CreatedAt:     now,
	}
	applyProfile(pharmacy, profile, now)

	if err := s.pharmacyRepo.CreatePharmacy(ctx, pharmacy); err != nil {
		if !errors.Is(err, domain.ErrConflict) {
			s.logger.Error("Failed to save pharmacy",
				zap.String("owner_id", ownerID),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("Pharmacy profile created",
		zap.String("pharmacy_id", pharmacy.PharmacyID),
		zap.String("owner_id", ownerID))

	return pharmacy, nil
}

func (s *PharmacyService) GetByID(ctx context.Context, pharmacyID string) (*domain.Pharmacy, error) {
	return s.pharmacyRepo.GetPharmacy(ctx, pharmacyID)
}

func (s *PharmacyService) GetByOwner(ctx context.Context, ownerID string) (*domain.Pharmacy, error) {
	return s.pharmacyRepo.GetPharmacyByOwner(ctx, ownerID)
}

// GetEligible returns the pharmacy only when search may show it.
func (s *PharmacyService) GetEligible(ctx context.Context, pharmacyID string) (*domain.Pharmacy, error) {
	pharmacy, err := s.pharmacyRepo.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if !pharmacy.Eligible() {
		return nil, domain.ErrIneligible
	}
	return pharmacy, nil
}

// DistanceFrom reports the distance in km, or false when the pharmacy has no
// location.
func (s *PharmacyService) DistanceFrom(pharmacy *domain.Pharmacy, origin domain.Coordinate) (float64, bool) {
	if !pharmacy.LocationSet {
		return 0, false
	}
	return geo.HaversineKm(origin, pharmacy.Coordinate), true
}

func (s *PharmacyService) UpdateProfile(ctx context.Context, ownerID string, profile domain.PharmacyProfile) (*domain.Pharmacy, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, ownerID, func(p *domain.Pharmacy, now time.Time) error {
		// 면허번호는 생성 시에만 지정
		if profile.LicenseNumber != "" && strings.TrimSpace(profile.LicenseNumber) != p.LicenseNumber {
			return &domain.ValidationError{Field: "license_number", Message: "cannot be changed"}
		}
		applyProfile(p, profile, now)
		return nil
	})
}

func (s *PharmacyService) SetLocation(ctx context.Context, ownerID string, coordinate domain.Coordinate) (*domain.Pharmacy, error) {
	if !domain.ValidCoordinate(coordinate) {
		return nil, &domain.ValidationError{Field: "coordinate", Message: "latitude must be within [-90, 90] and longitude within [-180, 180]"}
	}
	return s.mutate(ctx, ownerID, func(p *domain.Pharmacy, _ time.Time) error {
		p.Coordinate = coordinate
		p.LocationSet = true
		return nil
	})
}

func (s *PharmacyService) AttachCertificate(ctx context.Context, ownerID string, req domain.CertificateRequest) (*domain.Pharmacy, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.FileRef) == "" {
		return nil, &domain.ValidationError{Field: "certificate", Message: "name and file_ref are required"}
	}
	return s.mutate(ctx, ownerID, func(p *domain.Pharmacy, now time.Time) error {
		p.Certificates = append(p.Certificates, domain.Certificate{
			Name:       strings.TrimSpace(req.Name),
			FileRef:    strings.TrimSpace(req.FileRef),
			UploadedAt: now,
		})
		return nil
	})
}

// Submit moves a draft profile to pending approval.
func (s *PharmacyService) Submit(ctx context.Context, ownerID string) (*domain.Pharmacy, error) {
	pharmacy, err := s.pharmacyRepo.GetPharmacyByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	switch pharmacy.Status {
	case domain.StatusDraft:
	case domain.StatusRejected:
		return s.Resubmit(ctx, ownerID)
	case domain.StatusApproved:
		return nil, domain.ErrImmutable
	default:
		return nil, domain.ErrInvalidTransition
	}

	return s.transition(ctx, pharmacy, domain.StatusPendingApproval, func(p *domain.Pharmacy, _ time.Time) error {
		return requireCertificates(p)
	})
}

// Resubmit sends a rejected profile back for review.
func (s *PharmacyService) Resubmit(ctx context.Context, ownerID string) (*domain.Pharmacy, error) {
	pharmacy, err := s.pharmacyRepo.GetPharmacyByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if pharmacy.Status == domain.StatusApproved {
		return nil, domain.ErrImmutable
	}
	if pharmacy.Status != domain.StatusRejected {
		return nil, domain.ErrInvalidTransition
	}

	return s.transition(ctx, pharmacy, domain.StatusPendingApproval, func(p *domain.Pharmacy, _ time.Time) error {
		if err := requireCertificates(p); err != nil {
			return err
		}
		p.RejectionReason = ""
		p.IsVerified = false
		return nil
	})
}

func (s *PharmacyService) Approve(ctx context.Context, pharmacyID, adminID string) (*domain.Pharmacy, error) {
	pharmacy, err := s.pending(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, pharmacy, domain.StatusApproved, func(p *domain.Pharmacy, now time.Time) error {
		p.IsVerified = true
		p.ApprovedBy = adminID
		p.ApprovedAt = &now
		p.RejectionReason = ""
		return nil
	})
}

func (s *PharmacyService) Reject(ctx context.Context, pharmacyID, adminID, reason string) (*domain.Pharmacy, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &domain.ValidationError{Field: "rejection_reason", Message: "is required"}
	}

	pharmacy, err := s.pending(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, pharmacy, domain.StatusRejected, func(p *domain.Pharmacy, _ time.Time) error {
		p.IsVerified = false
		p.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Pharmacy rejected",
		zap.String("pharmacy_id", pharmacyID),
		zap.String("admin_id", adminID),
		zap.String("reason", reason))
	return updated, nil
}

func (s *PharmacyService) pending(ctx context.Context, pharmacyID string) (*domain.Pharmacy, error) {
	pharmacy, err := s.pharmacyRepo.GetPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if pharmacy.Status == domain.StatusApproved {
		return nil, domain.ErrImmutable
	}
	if pharmacy.Status != domain.StatusPendingApproval {
		return nil, domain.ErrInvalidTransition
	}
	return pharmacy, nil
}

func (s *PharmacyService) ListByStatus(ctx context.Context, status domain.ApprovalStatus) ([]domain.Pharmacy, error) {
	if status != "" && !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Message: "unknown approval status"}
	}
	return s.pharmacyRepo.ListPharmacies(ctx, status)
}

func (s *PharmacyService) Stats(ctx context.Context) (domain.PharmacyStats, error) {
	pharmacies, err := s.pharmacyRepo.ListPharmacies(ctx, "")
	if err != nil {
		return domain.PharmacyStats{}, err
	}

	var stats domain.PharmacyStats
	for _, p := range pharmacies {
		stats.Total++
		switch p.Status {
		case domain.StatusDraft:
			stats.Draft++
		case domain.StatusPendingApproval:
			stats.Pending++
		case domain.StatusApproved:
			stats.Approved++
		case domain.StatusRejected:
			stats.Rejected++
		}
	}
	return stats, nil
}

// mutate applies an owner edit that keeps the current status.
func (s *PharmacyService) mutate(ctx context.Context, ownerID string, edit func(*domain.Pharmacy, time.Time) error) (*domain.Pharmacy, error) {
	pharmacy, err := s.pharmacyRepo.GetPharmacyByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if pharmacy.Status == domain.StatusApproved {
		return nil, domain.ErrImmutable
	}

	now := s.now().UTC()
	if err := edit(pharmacy, now); err != nil {
		return nil, err
	}
	pharmacy.UpdatedAt = now

	if err := s.pharmacyRepo.UpdatePharmacy(ctx, pharmacy, pharmacy.Status); err != nil {
		// 읽은 뒤 승인된 경우
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, domain.ErrImmutable
		}
		return nil, err
	}
	return pharmacy, nil
}

func (s *PharmacyService) transition(ctx context.Context, pharmacy *domain.Pharmacy, to domain.ApprovalStatus, edit func(*domain.Pharmacy, time.Time) error) (*domain.Pharmacy, error) {
	from := pharmacy.Status
	now := s.now().UTC()
	if err := edit(pharmacy, now); err != nil {
		return nil, err
	}
	pharmacy.Status = to
	pharmacy.UpdatedAt = now

	if err := s.pharmacyRepo.UpdatePharmacy(ctx, pharmacy, from); err != nil {
		s.logger.Warn("Approval transition rejected",
			zap.String("pharmacy_id", pharmacy.PharmacyID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err))
		return nil, err
	}

	metrics.ApprovalTransitions.WithLabelValues(string(to)).Inc()
	s.logger.Info("Pharmacy status changed",
		zap.String("pharmacy_id", pharmacy.PharmacyID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	return pharmacy, nil
}

func requireCertificates(p *domain.Pharmacy) error {
	if len(p.Certificates) == 0 {
		return &domain.ValidationError{Field: "certificates", Message: "at least one certificate is required before submission"}
	}
	return nil
}

func applyProfile(p *domain.Pharmacy, profile domain.PharmacyProfile, now time.Time) {
	p.Name = strings.TrimSpace(profile.Name)
	p.Address = profile.Address
	p.Phone = profile.Phone
	p.Email = profile.Email
	if profile.Coordinate != nil {
		p.Coordinate = *profile.Coordinate
		p.LocationSet = true
	}
	p.UpdatedAt = now
}

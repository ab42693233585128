package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/pbis-api/internal/models"
)

// IdentifierIndex is an immutable bidirectional snapshot between student codes and
// external behavior-system codes. A nil index resolves nothing.
type IdentifierIndex struct {
	byStudent  map[string]models.StudentIdentity
	byExternal map[string]string
	order      []string
}

// NewIdentifierIndex builds the snapshot. Only enrolled students with a non-empty external
// code enter the reverse map; an external code claimed by more than one enrolled student
// is left out entirely so its incidents are never attributed to the wrong student.
func NewIdentifierIndex(students []models.Student, logger *zap.Logger) *IdentifierIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &IdentifierIndex{
		byStudent:  make(map[string]models.StudentIdentity, len(students)),
		byExternal: make(map[string]string, len(students)),
		order:      make([]string, 0, len(students)),
	}
	ambiguous := make(map[string]struct{})
	for _, student := range students {
		identity := student.Identity()
		if identity.StudentCode == "" {
			continue
		}
		if _, seen := idx.byStudent[identity.StudentCode]; !seen {
			idx.order = append(idx.order, identity.StudentCode)
		}
		idx.byStudent[identity.StudentCode] = identity

		if !identity.Enrolled || identity.ExternalCode == "" {
			continue
		}
		if _, dup := ambiguous[identity.ExternalCode]; dup {
			continue
		}
		if other, taken := idx.byExternal[identity.ExternalCode]; taken && other != identity.StudentCode {
			logger.Warn("external code shared by several enrolled students; excluded from analytics",
				zap.String("external_code", identity.ExternalCode),
				zap.String("student_code", identity.StudentCode),
				zap.String("other_student_code", other))
			delete(idx.byExternal, identity.ExternalCode)
			ambiguous[identity.ExternalCode] = struct{}{}
			continue
		}
		idx.byExternal[identity.ExternalCode] = identity.StudentCode
	}
	return idx
}

// ByStudentCode returns the student's snapshot. Unknown codes miss softly.
func (i *IdentifierIndex) ByStudentCode(code string) (models.StudentIdentity, bool) {
	if i == nil {
		return models.StudentIdentity{}, false
	}
	identity, ok := i.byStudent[strings.TrimSpace(code)]
	return identity, ok
}

// ByExternalCode returns the enrolled student mapped to an external code.
func (i *IdentifierIndex) ByExternalCode(code string) (string, bool) {
	if i == nil {
		return "", false
	}
	studentCode, ok := i.byExternal[strings.TrimSpace(code)]
	return studentCode, ok
}

// ResolveIncident attributes an incident to an enrolled student, or reports false.
func (i *IdentifierIndex) ResolveIncident(incident models.BehaviorIncident) (models.StudentIdentity, bool) {
	code, ok := i.ByExternalCode(incident.ExternalCode)
	if !ok {
		return models.StudentIdentity{}, false
	}
	return i.ByStudentCode(code)
}

// Students lists every known student in roster order.
func (i *IdentifierIndex) Students() []models.StudentIdentity {
	if i == nil {
		return nil
	}
	out := make([]models.StudentIdentity, 0, len(i.order))
	for _, code := range i.order {
		out = append(out, i.byStudent[code])
	}
	return out
}

// Mapping returns the reverse map keyed by external code.
func (i *IdentifierIndex) Mapping() map[string]models.StudentIdentity {
	out := make(map[string]models.StudentIdentity)
	if i == nil {
		return out
	}
	for external, code := range i.byExternal {
		out[external] = i.byStudent[code]
	}
	return out
}

type rosterReader interface {
	Students(ctx context.Context) ([]models.Student, bool, error)
}

// IdentifierService resolves identities against the cached roster.
type IdentifierService struct {
	roster rosterReader
	logger *zap.Logger
}

// NewIdentifierService constructs the resolver service.
func NewIdentifierService(roster rosterReader, logger *zap.Logger) *IdentifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentifierService{roster: roster, logger: logger}
}

// Index builds a snapshot from the current roster.
func (s *IdentifierService) Index(ctx context.Context) (*IdentifierIndex, error) {
	students, _, err := s.roster.Students(ctx)
	if err != nil {
		return nil, err
	}
	return NewIdentifierIndex(students, s.logger), nil
}

// ResolveByStudentCode looks up a student's external code, enrollment and tiers.
func (s *IdentifierService) ResolveByStudentCode(ctx context.Context, code string) (models.StudentIdentity, bool, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return models.StudentIdentity{}, false, err
	}
	identity, ok := idx.ByStudentCode(code)
	return identity, ok, nil
}

// ResolveByExternalCode looks up the enrolled student behind an external code.
func (s *IdentifierService) ResolveByExternalCode(ctx context.Context, code string) (string, bool, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return "", false, err
	}
	studentCode, ok := idx.ByExternalCode(code)
	return studentCode, ok, nil
}

// Mapping returns the external-code mapping used for analytics.
func (s *IdentifierService) Mapping(ctx context.Context) (map[string]models.StudentIdentity, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Mapping(), nil
}

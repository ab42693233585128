package models

import (
	"strings"
	"time"
)

// TierFlag names one of the independent support-tier markers carried by a student.
type TierFlag string

const (
	TierFlag1     TierFlag = "Tier1"
	TierFlag2CICO TierFlag = "Tier2(CICO)"
	TierFlag2SST  TierFlag = "Tier2(SST)"
	TierFlag3     TierFlag = "Tier3"
	TierFlag3Plus TierFlag = "Tier3+"
)

// TierFlags are not mutually exclusive; a student may carry several at once.
type TierFlags struct {
	Tier1     bool `db:"tier1" json:"tier1"`
	Tier2CICO bool `db:"tier2_cico" json:"tier2_cico"`
	Tier2SST  bool `db:"tier2_sst" json:"tier2_sst"`
	Tier3     bool `db:"tier3" json:"tier3"`
	Tier3Plus bool `db:"tier3_plus" json:"tier3_plus"`
}

// Has reports whether flag is set.
func (f TierFlags) Has(flag TierFlag) bool {
	switch flag {
	case TierFlag1:
		return f.Tier1
	case TierFlag2CICO:
		return f.Tier2CICO
	case TierFlag2SST:
		return f.Tier2SST
	case TierFlag3:
		return f.Tier3
	case TierFlag3Plus:
		return f.Tier3Plus
	default:
		return false
	}
}

// Labels lists the set flags in escalation order.
func (f TierFlags) Labels() []TierFlag {
	labels := make([]TierFlag, 0, 5)
	for _, flag := range []TierFlag{TierFlag1, TierFlag2CICO, TierFlag2SST, TierFlag3, TierFlag3Plus} {
		if f.Has(flag) {
			labels = append(labels, flag)
		}
	}
	return labels
}

// Student is the identity anchor for every tier and status operation.
type Student struct {
	StudentCode  string  `db:"student_code" json:"student_code"`
	ExternalCode *string `db:"external_code" json:"external_code,omitempty"`
	ClassName    string  `db:"class_name" json:"class_name"`
	Enrolled     bool    `db:"enrolled" json:"enrolled"`
	TierFlags
	Memo      string    `db:"memo" json:"memo"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// External returns the trimmed external behavior-system code, or "" when unmapped.
func (s Student) External() string {
	if s.ExternalCode == nil {
		return ""
	}
	return strings.TrimSpace(*s.ExternalCode)
}

// Identity projects the student onto the resolver snapshot.
func (s Student) Identity() StudentIdentity {
	return StudentIdentity{
		StudentCode:  strings.TrimSpace(s.StudentCode),
		ExternalCode: s.External(),
		ClassName:    s.ClassName,
		Enrolled:     s.Enrolled,
		Tiers:        s.TierFlags,
		Memo:         s.Memo,
	}
}

// StudentIdentity is the resolver's view of a student.
type StudentIdentity struct {
	StudentCode  string    `json:"student_code"`
	ExternalCode string    `json:"external_code,omitempty"`
	ClassName    string    `json:"class_name"`
	Enrolled     bool      `json:"enrolled"`
	Tiers        TierFlags `json:"tiers"`
	Memo         string    `json:"memo,omitempty"`
}

// StudentUpdate carries a partial administrative update; nil fields are left untouched.
type StudentUpdate struct {
	ExternalCode *string `json:"external_code" validate:"omitempty,max=64"`
	Enrolled     *bool   `json:"enrolled"`
	Tier1        *bool   `json:"tier1"`
	Tier2CICO    *bool   `json:"tier2_cico"`
	Tier2SST     *bool   `json:"tier2_sst"`
	Tier3        *bool   `json:"tier3"`
	Tier3Plus    *bool   `json:"tier3_plus"`
	Memo         *string `json:"memo" validate:"omitempty,max=500"`
}

// Empty reports whether the update would change nothing.
func (u StudentUpdate) Empty() bool {
	return u.ExternalCode == nil && u.Enrolled == nil && u.Tier1 == nil && u.Tier2CICO == nil &&
		u.Tier2SST == nil && u.Tier3 == nil && u.Tier3Plus == nil && u.Memo == nil
}

// RosterStatus lists students with enrollment counts.
type RosterStatus struct {
	Students      []Student `json:"students"`
	EnrolledCount int       `json:"enrolled_count"`
	TotalCount    int       `json:"total_count"`
}

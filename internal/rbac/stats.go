package rbac

import (
	"fmt"

	"github.com/ai-job-readiness/jobready/internal/db/models"
)

// RoleStat is the per-role slice of the statistics report.
type RoleStat struct {
	RoleID            uint   `json:"role_id"`
	Name              string `json:"name"`
	Active            bool   `json:"active"`
	ActiveAssignments int64  `json:"active_assignments"`
}

// Statistics is the aggregate usage report over roles and assignments.
type Statistics struct {
	TotalRoles        int64      `json:"total_roles"`
	ActiveRoles       int64      `json:"active_roles"`
	TotalAssignments  int64      `json:"total_assignments"`
	ActiveAssignments int64      `json:"active_assignments"`
	Roles             []RoleStat `json:"roles"`
}

// Statistics returns per-role active assignment counts plus overall totals.
// The per-role counts come from a single aggregate query; assignments are
// never loaded into memory.
func (s *Service) Statistics() (*Statistics, error) {
	var stats Statistics

	err := s.db.Table("roles").
		Select("roles.id AS role_id, roles.name AS name, roles.active AS active, " +
			"COUNT(account_role_assignments.id) AS active_assignments").
		Joins("LEFT JOIN account_role_assignments ON account_role_assignments.role_id = roles.id "+
			"AND account_role_assignments.active = ?", true).
		Group("roles.id, roles.name, roles.active").
		Order("roles.name").
		Scan(&stats.Roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate role statistics: %w", err)
	}

	if err := s.db.Model(&models.Role{}).Count(&stats.TotalRoles).Error; err != nil {
		return nil, fmt.Errorf("failed to count roles: %w", err)
	}

	err = s.db.Model(&models.Role{}).Where("active = ?", true).Count(&stats.ActiveRoles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active roles: %w", err)
	}

	err = s.db.Model(&models.Assignment{}).Count(&stats.TotalAssignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}

	err = s.db.Model(&models.Assignment{}).Where("active = ?", true).
		Count(&stats.ActiveAssignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count active assignments: %w", err)
	}

	return &stats, nil
}

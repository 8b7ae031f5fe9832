// Package testutils provides shared fixtures for engine and coordinator
// tests: rating and assignment builders with sensible defaults, so tests
// state only what they care about.
package testutils

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-merit/internal/domain"
)

// BaseTime is the reference instant used by fixtures; tests derive offsets
// from it instead of calling time.Now so runs are reproducible.
var BaseTime = time.Date(2024, time.December, 1, 9, 0, 0, 0, time.UTC)

// Float returns a pointer to v, for populating nullable criterion scores.
func Float(v float64) *float64 { return &v }

// ActiveCycle returns an active cycle for the 2024-12 period.
func ActiveCycle() domain.EvaluationCycle {
	activated := BaseTime
	return domain.EvaluationCycle{
		ID:          uuid.MustParse("00000000-0000-0000-0000-0000000000c1"),
		Name:        "December 2024 Evaluation",
		Period:      "2024-12",
		StartDate:   BaseTime,
		EndDate:     BaseTime.AddDate(0, 1, 0),
		Status:      domain.CycleActive,
		CreatedBy:   uuid.MustParse("00000000-0000-0000-0000-0000000000ad"),
		CreatedAt:   BaseTime.AddDate(0, 0, -7),
		ActivatedAt: &activated,
	}
}

// DraftCycle returns a cycle still in draft.
func DraftCycle() domain.EvaluationCycle {
	c := ActiveCycle()
	c.Status = domain.CycleDraft
	c.ActivatedAt = nil
	return c
}

// ClosedCycle returns a closed cycle.
func ClosedCycle() domain.EvaluationCycle {
	c := ActiveCycle()
	closed := BaseTime.AddDate(0, 1, 0)
	c.Status = domain.CycleClosed
	c.ClosedAt = &closed
	return c
}

// Evaluee is the default evaluee identity shared by snapshot fixtures.
var Evaluee = struct {
	ID         uuid.UUID
	Name       string
	Department string
}{
	ID:         uuid.MustParse("00000000-0000-0000-0000-0000000000e1"),
	Name:       "Aisha Nakato",
	Department: "Primary Teachers",
}

// Assignment returns a submitted assignment for the default evaluee with
// the given evaluator role and weight.
func Assignment(role domain.EvaluatorRole, weight float64) domain.Evaluation {
	submitted := BaseTime.AddDate(0, 0, 10)
	return domain.Evaluation{
		ID:                uuid.New(),
		CycleID:           ActiveCycle().ID,
		EvalueeID:         Evaluee.ID,
		EvalueeName:       Evaluee.Name,
		EvalueeDepartment: Evaluee.Department,
		EvalueeStaffType:  domain.StaffAcademic,
		EvaluatorID:       uuid.New(),
		EvaluatorName:     "Evaluator " + string(role),
		EvaluatorRole:     role,
		Weight:            weight,
		Status:            domain.EvaluationSubmitted,
		AssignedAt:        BaseTime,
		SubmittedAt:       &submitted,
		DueDate:           BaseTime.AddDate(0, 0, 21),
	}
}

// PendingAssignment returns an assignment that has not been started.
func PendingAssignment(role domain.EvaluatorRole, weight float64) domain.Evaluation {
	a := Assignment(role, weight)
	a.Status = domain.EvaluationNotStarted
	a.SubmittedAt = nil
	return a
}

// AcademicRating returns a rating for the default academic evaluee with
// every applicable criterion set to score, so its raw average equals score.
func AcademicRating(role domain.EvaluatorRole, score float64) domain.EvaluationRating {
	return domain.EvaluationRating{
		ID:                       uuid.New(),
		CycleID:                  ActiveCycle().ID,
		EvaluatorID:              uuid.New(),
		EvaluatorRole:            role,
		EvalueeID:                Evaluee.ID,
		TeachingEffectiveness:    Float(score),
		StudentEngagement:        Float(score),
		CurriculumImplementation: Float(score),
		ClassroomManagement:      Float(score),
		Collaboration:            score,
		Innovation:               score,
		Attendance:               score,
		ProfessionalDevelopment:  score,
		AverageScore:             score,
		SubmittedAt:              BaseTime.AddDate(0, 0, 10),
	}
}

// AdministrativeRating returns a rating using the administrative criteria
// set, averaging to score.
func AdministrativeRating(role domain.EvaluatorRole, score float64) domain.EvaluationRating {
	return domain.EvaluationRating{
		ID:                             uuid.New(),
		CycleID:                        ActiveCycle().ID,
		EvaluatorID:                    uuid.New(),
		EvaluatorRole:                  role,
		EvalueeID:                      Evaluee.ID,
		TaskManagement:                 Float(score),
		PolicyAdherence:                Float(score),
		InterdepartmentalCommunication: Float(score),
		ServiceQuality:                 Float(score),
		Collaboration:                  score,
		Innovation:                     score,
		Attendance:                     score,
		ProfessionalDevelopment:        score,
		AverageScore:                   score,
		SubmittedAt:                    BaseTime.AddDate(0, 0, 10),
	}
}

// Snapshot assembles an EvalueeSnapshot for the default academic evaluee.
func Snapshot(cycle domain.EvaluationCycle, assignments []domain.Evaluation, ratings []domain.EvaluationRating) domain.EvalueeSnapshot {
	return domain.EvalueeSnapshot{
		Cycle:             cycle,
		EvalueeID:         Evaluee.ID,
		EvalueeName:       Evaluee.Name,
		EvalueeDepartment: Evaluee.Department,
		EvalueeStaffType:  domain.StaffAcademic,
		Assignments:       assignments,
		Ratings:           ratings,
	}
}

// Candidate returns an EOY candidate that comfortably meets the default
// minimum criteria.
func Candidate(name string, wins int, avgMRE, attendance float64) domain.EOYCandidate {
	return domain.EOYCandidate{
		ID:             uuid.New(),
		Year:           2024,
		EmployeeID:     uuid.New(),
		EmployeeName:   name,
		Department:     "Primary Teachers",
		EOMWins:        wins,
		AvgMREScore:    avgMRE,
		AttendanceRate: attendance,
		TenureMonths:   24,
		CreatedAt:      BaseTime,
		UpdatedAt:      BaseTime,
	}
}

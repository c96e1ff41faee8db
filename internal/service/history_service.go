package service

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/elo-edu/secretaria-api/internal/models"
)

type disciplineNameResolver interface {
	ResolveName(ctx context.Context, id string) (string, error)
}

// HistoryService turns raw grade and attendance rows into per-year,
// per-discipline outcomes. It is a pure aggregation over its inputs; the only
// collaborator is the discipline name resolver.
type HistoryService struct {
	disciplines disciplineNameResolver
	policy      models.OutcomePolicy
	logger      *zap.Logger
}

// NewHistoryService constructs the aggregator. Zero policy fields fall back
// to the transcript defaults.
func NewHistoryService(disciplines disciplineNameResolver, policy models.OutcomePolicy, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := models.DefaultOutcomePolicy()
	if policy.MinAverage <= 0 {
		policy.MinAverage = defaults.MinAverage
	}
	if policy.MinAttendance <= 0 {
		policy.MinAttendance = defaults.MinAttendance
	}
	if policy.MaxDependencies <= 0 {
		policy.MaxDependencies = defaults.MaxDependencies
	}
	return &HistoryService{disciplines: disciplines, policy: policy, logger: logger}
}

type disciplineAccumulator struct {
	termGrades map[string]float64
	lessons    int
	attended   int
}

// Aggregate groups entries by (year, discipline) and applies the outcome
// policy. Years are emitted ascending; disciplines within a year are sorted
// by resolved name. A year appears only when at least one entry references
// it; yearsFilter, when non-empty, restricts the output to those years.
func (s *HistoryService) Aggregate(ctx context.Context, studentID string, grades []models.GradeEntry, attendance []models.AttendanceEntry, yearsFilter []int) ([]models.YearResult, error) {
	wanted := make(map[int]struct{}, len(yearsFilter))
	for _, y := range yearsFilter {
		wanted[y] = struct{}{}
	}
	include := func(year int) bool {
		if len(wanted) == 0 {
			return true
		}
		_, ok := wanted[year]
		return ok
	}

	byYear := make(map[int]map[string]*disciplineAccumulator)
	accumulator := func(year int, disciplineID string) *disciplineAccumulator {
		disciplines := byYear[year]
		if disciplines == nil {
			disciplines = make(map[string]*disciplineAccumulator)
			byYear[year] = disciplines
		}
		acc := disciplines[disciplineID]
		if acc == nil {
			acc = &disciplineAccumulator{termGrades: make(map[string]float64)}
			disciplines[disciplineID] = acc
		}
		return acc
	}

	for _, grade := range grades {
		if grade.StudentID != studentID || !include(grade.Year) {
			continue
		}
		accumulator(grade.Year, grade.DisciplineID).termGrades[grade.Term] = grade.Value
	}
	for _, entry := range attendance {
		if entry.StudentID != studentID || !include(entry.Year) {
			continue
		}
		acc := accumulator(entry.Year, entry.DisciplineID)
		acc.lessons++
		if entry.Present {
			acc.attended++
		}
	}

	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	results := make([]models.YearResult, 0, len(years))
	for _, year := range years {
		result, err := s.aggregateYear(ctx, year, byYear[year])
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *HistoryService) aggregateYear(ctx context.Context, year int, accs map[string]*disciplineAccumulator) (models.YearResult, error) {
	disciplines := make([]models.DisciplineResult, 0, len(accs))
	for disciplineID, acc := range accs {
		name, err := s.disciplines.ResolveName(ctx, disciplineID)
		if err != nil {
			return models.YearResult{}, err
		}
		disciplines = append(disciplines, s.resolveDiscipline(disciplineID, name, acc))
	}

	sort.Slice(disciplines, func(i, j int) bool {
		if disciplines[i].Name != disciplines[j].Name {
			return disciplines[i].Name < disciplines[j].Name
		}
		return disciplines[i].DisciplineID < disciplines[j].DisciplineID
	})

	var failing []string
	for _, disc := range disciplines {
		if disc.Outcome == models.DisciplineFailed {
			failing = append(failing, disc.DisciplineID)
		}
	}

	result := models.YearResult{
		Year:               year,
		Disciplines:        disciplines,
		TotalDisciplines:   len(disciplines),
		FailingDisciplines: len(failing),
	}
	switch {
	case len(failing) == 0:
		result.Outcome = models.YearApproved
	case len(failing) <= s.policy.MaxDependencies:
		result.Outcome = models.YearApprovedWithDependency
		result.Dependencies = failing
	default:
		result.Outcome = models.YearFailed
	}
	return result, nil
}

func (s *HistoryService) resolveDiscipline(id, name string, acc *disciplineAccumulator) models.DisciplineResult {
	// Missing terms are ignored, not treated as zero; a discipline with no
	// grades at all averages 0 and fails on the average rule.
	var average float64
	if len(acc.termGrades) > 0 {
		var sum float64
		for _, value := range acc.termGrades {
			sum += value
		}
		average = sum / float64(len(acc.termGrades))
	}

	// No recorded lessons counts as full attendance to avoid dividing by
	// zero; the convention matches the legacy aggregator.
	attendancePercent := 100.0
	if acc.lessons > 0 {
		attendancePercent = float64(acc.attended) / float64(acc.lessons) * 100
	}

	result := models.DisciplineResult{
		DisciplineID:      id,
		Name:              name,
		TermGrades:        acc.termGrades,
		Average:           math.Round(average*100) / 100,
		AttendancePercent: math.Round(attendancePercent*10) / 10,
		TotalLessons:      acc.lessons,
		AttendedLessons:   acc.attended,
		Outcome:           models.DisciplineApproved,
	}

	if average < s.policy.MinAverage {
		result.FailureReasons = append(result.FailureReasons, models.ReasonLowAverage)
	}
	if attendancePercent < s.policy.MinAttendance {
		result.FailureReasons = append(result.FailureReasons, models.ReasonLowAttendance)
	}
	if len(result.FailureReasons) > 0 {
		result.Outcome = models.DisciplineFailed
	}
	return result
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

// generationPlan is the validated, loaded input of one generation request.
type generationPlan struct {
	Program  string
	Term     string
	Shift    scheduler.ShiftWindow
	Teachers []scheduler.Teacher
	Subjects []scheduler.Subject
	Groups   []scheduler.Group
	Skipped  []string
}

// groupRun is the engine outcome for one group of a plan.
type groupRun struct {
	Group  scheduler.Group
	Result *scheduler.Result
}

type timetableProposal struct {
	ID        string
	Plan      *generationPlan
	Runs      []groupRun
	CreatedAt time.Time
}

// timetableMeta is stored as JSON on each generated timetable.
type timetableMeta struct {
	Coverage        []scheduler.SubjectCoverage `json:"coverage"`
	Passes          int                         `json:"passes"`
	SkippedSubjects []string                    `json:"skippedSubjects,omitempty"`
	TeacherIDs      []string                    `json:"teacherIds"`
	Algorithm       string                      `json:"algorithm"`
	GeneratedAt     time.Time                   `json:"generatedAt"`
}

// Generate schedules the requested groups and persists every non-empty result.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	plan, runs, err := s.planAndRun(ctx, req)
	if err != nil {
		return nil, err
	}
	ids, err := s.persist(ctx, plan, runs)
	if err != nil {
		return nil, err
	}
	return buildGenerateResponse(plan, runs, ids, ""), nil
}

// Preview runs the engine without persisting and keeps the outcome as a
// proposal that CommitProposal can store later.
func (s *TimetableService) Preview(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	plan, runs, err := s.planAndRun(ctx, req)
	if err != nil {
		return nil, err
	}
	proposal := timetableProposal{ID: uuid.NewString(), Plan: plan, Runs: runs, CreatedAt: time.Now().UTC()}
	s.proposals.Save(proposal.ID, proposal)
	return buildGenerateResponse(plan, runs, nil, proposal.ID), nil
}

// CommitProposal persists a previewed proposal exactly as it was shown.
func (s *TimetableService) CommitProposal(ctx context.Context, id string) (*dto.GenerateTimetableResponse, error) {
	proposal, ok := s.proposals.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	ids, err := s.persist(ctx, proposal.Plan, proposal.Runs)
	if err != nil {
		return nil, err
	}
	s.proposals.Delete(id)
	return buildGenerateResponse(proposal.Plan, proposal.Runs, ids, proposal.ID), nil
}

func (s *TimetableService) planAndRun(ctx context.Context, req dto.GenerateTimetableRequest) (*generationPlan, []groupRun, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	runs, err := s.run(ctx, plan)
	if err != nil {
		return nil, nil, err
	}
	return plan, runs, nil
}

func (s *TimetableService) plan(ctx context.Context, req dto.GenerateTimetableRequest) (*generationPlan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid timetable generation payload")
	}
	if req.Groups > s.cfg.MaxGroupsPerRun {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d groups can be generated per request", s.cfg.MaxGroupsPerRun))
	}
	shiftName := req.Shift
	if strings.TrimSpace(shiftName) == "" {
		shiftName = s.cfg.DefaultShift
	}
	if !scheduler.KnownShift(shiftName) {
		s.logger.Warn("unknown shift, using evening window", zap.String("shift", shiftName))
	}

	plan := &generationPlan{
		Program: strings.TrimSpace(req.Program),
		Term:    strings.TrimSpace(req.Term),
		Shift:   scheduler.ParseShift(shiftName),
	}

	teacherIDs := lo.Uniq(req.TeacherIDs)
	teachers, err := s.teachers.FindByIDs(ctx, teacherIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	byID := lo.KeyBy(teachers, func(teacher models.Teacher) string { return teacher.ID })
	if missing := lo.Filter(teacherIDs, func(id string, _ int) bool { _, ok := byID[id]; return !ok }); len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teachers not found: "+strings.Join(missing, ", "))
	}

	// Eligibility follows teacher order, so keep the order the caller gave.
	ordered := lo.Map(teacherIDs, func(id string, _ int) models.Teacher { return byID[id] })
	subjectIDs := lo.Uniq(lo.FlatMap(ordered, func(teacher models.Teacher, _ int) []string { return teacher.SubjectIDs }))
	subjects, err := s.subjects.FindByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	subjectByID := lo.KeyBy(subjects, func(subject models.Subject) string { return subject.ID })

	for _, id := range subjectIDs {
		subject, ok := subjectByID[id]
		if !ok {
			continue
		}
		if !s.subjectInTerm(subject, plan.Term) {
			plan.Skipped = append(plan.Skipped, subject.Name)
			continue
		}
		term := ""
		if subject.Term != nil {
			term = *subject.Term
		}
		plan.Subjects = append(plan.Subjects, scheduler.Subject{ID: subject.ID, Name: subject.Name, RequiredHours: subject.RequiredHours, Term: term})
	}
	if len(plan.Subjects) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "selected teachers have no subjects to schedule for this term")
	}

	plan.Teachers = lo.Map(ordered, func(teacher models.Teacher, _ int) scheduler.Teacher { return toSchedulerTeacher(teacher) })
	for n := 1; n <= req.Groups; n++ {
		plan.Groups = append(plan.Groups, scheduler.Group{ID: uuid.NewString(), Name: generatedGroupName(plan.Program, plan.Term, n)})
	}
	return plan, nil
}

func (s *TimetableService) subjectInTerm(subject models.Subject, term string) bool {
	if subject.Term == nil || strings.TrimSpace(*subject.Term) == "" {
		return true
	}
	value := strings.TrimSpace(*subject.Term)
	if lo.ContainsBy(s.cfg.ExcludedTerms, func(excluded string) bool { return strings.EqualFold(excluded, value) }) {
		return false
	}
	return strings.EqualFold(value, term)
}

func toSchedulerTeacher(teacher models.Teacher) scheduler.Teacher {
	out := scheduler.Teacher{
		ID:              teacher.ID,
		Name:            teacher.Name,
		SubjectIDs:      teacher.SubjectIDs,
		MaxHoursPerDay:  scheduler.IntPtr(teacher.MaxHoursPerDay),
		MaxHoursPerWeek: teacher.MaxHoursPerWeek,
	}
	// An empty stored set means availability was never configured.
	if len(teacher.AvailableDays) > 0 {
		out.AvailableDays = teacher.AvailableDays
	}
	return out
}

// run executes one fresh engine per group on the fan-out pool.
func (s *TimetableService) run(ctx context.Context, plan *generationPlan) ([]groupRun, error) {
	runs := make([]groupRun, len(plan.Groups))
	err := jobs.Fanout(ctx, s.cfg.Workers, len(plan.Groups), func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		group := plan.Groups[i]
		engine := scheduler.NewEngine(plan.Shift, group,
			scheduler.WithLogger(s.logger),
			scheduler.WithMaxPasses(s.cfg.MaxPasses),
		)
		start := time.Now()
		result, err := engine.Run(plan.Teachers, plan.Subjects, nil)
		if err != nil {
			return err
		}
		s.metrics.ObserveScheduleRun(result.Placed, result.Shortfall(), time.Since(start))
		runs[i] = groupRun{Group: group, Result: result}
		return nil
	})
	if err != nil {
		if errors.Is(err, scheduler.ErrMalformedInput) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable generation failed")
	}
	return runs, nil
}

// persist archives earlier timetables of the program term and stores each
// non-empty run with its group. It returns timetable ids keyed by group id.
func (s *TimetableService) persist(ctx context.Context, plan *generationPlan, runs []groupRun) (map[string]string, error) {
	ids := make(map[string]string, len(runs))
	teacherIDs := lo.Map(plan.Teachers, func(teacher scheduler.Teacher, _ int) string { return teacher.ID })

	err := withTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		archived, err := s.timetables.ArchiveByProgramTerm(ctx, tx, plan.Program, plan.Term)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive previous timetables")
		}
		if archived > 0 {
			s.logger.Info("previous timetables archived", zap.String("program", plan.Program), zap.String("term", plan.Term), zap.Int64("count", archived))
		}

		for _, run := range runs {
			if run.Result == nil || len(run.Result.Assignments) == 0 {
				continue
			}
			group := &models.Group{ID: run.Group.ID, Name: run.Group.Name, Program: plan.Program, Term: plan.Term, Generated: true}
			if err := s.groups.Create(ctx, tx, group); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
			}

			meta, err := json.Marshal(timetableMeta{
				Coverage:        run.Result.Coverage,
				Passes:          run.Result.Passes,
				SkippedSubjects: plan.Skipped,
				TeacherIDs:      teacherIDs,
				Algorithm:       "greedy_repair_v1",
				GeneratedAt:     time.Now().UTC(),
			})
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
			}
			timetable := &models.Timetable{
				Name:          fmt.Sprintf("Timetable %s", group.Name),
				GroupID:       group.ID,
				Program:       plan.Program,
				Term:          plan.Term,
				Shift:         plan.Shift.Label(),
				Status:        models.TimetableStatusGenerated,
				RequiredHours: run.Result.Required,
				PlacedHours:   run.Result.Placed,
				Meta:          types.JSONText(meta),
			}
			if err := s.timetables.Create(ctx, tx, timetable); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
			}

			rows := lo.Map(run.Result.Assignments, func(a scheduler.Assignment, _ int) models.TimetableAssignment {
				return models.TimetableAssignment{
					TimetableID: timetable.ID,
					TeacherID:   a.TeacherID,
					SubjectID:   a.SubjectID,
					GroupID:     group.ID,
					Weekday:     a.Day,
					StartHour:   a.StartHour,
					EndHour:     a.EndHour,
				}
			})
			if err := s.assignments.InsertBatch(ctx, tx, rows); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store assignments")
			}
			ids[group.ID] = timetable.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, "")
	s.logger.Info("timetables generated",
		zap.String("program", plan.Program),
		zap.String("term", plan.Term),
		zap.String("shift", plan.Shift.Label()),
		zap.Int("groups", len(runs)),
		zap.Int("stored", len(ids)),
	)
	return ids, nil
}

func buildGenerateResponse(plan *generationPlan, runs []groupRun, ids map[string]string, proposalID string) *dto.GenerateTimetableResponse {
	resp := &dto.GenerateTimetableResponse{
		ProposalID: proposalID,
		Program:    plan.Program,
		Term:       plan.Term,
		Shift:      plan.Shift.Label(),
		Subjects:   len(plan.Subjects),
		Groups:     make([]dto.GroupScheduleResult, 0, len(runs)),
		Skipped:    plan.Skipped,
	}
	for _, run := range runs {
		item := dto.GroupScheduleResult{GroupName: run.Group.Name}
		if run.Result != nil {
			item.Required = run.Result.Required
			item.Placed = run.Result.Placed
			item.Complete = run.Result.Complete()
			item.Passes = run.Result.Passes
			item.Coverage = run.Result.Coverage
			item.Assignments = run.Result.Assignments
		}
		if id, ok := ids[run.Group.ID]; ok {
			item.GroupID = run.Group.ID
			item.TimetableID = id
		}
		resp.Groups = append(resp.Groups, item)
	}
	return resp
}

func generatedGroupName(program, term string, n int) string {
	return fmt.Sprintf("%s-%d", strings.TrimSpace(program+" "+term), n)
}

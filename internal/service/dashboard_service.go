package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "agentdesk/internal/errors"
	"agentdesk/internal/model"
	"agentdesk/internal/repository"
	"agentdesk/internal/room"
	"agentdesk/internal/summary"
	"agentdesk/internal/timer"
)

const maxNotesLength = 4000

// DashboardService drives the agent dashboard. It keeps no state between
// requests: every call re-reads the open intervals from the store, so reloads
// and second tabs see the same picture.
type DashboardService struct {
	users       *repository.UserRepository
	timer       *timer.Engine
	summary     *summary.Engine
	rooms       *room.Provisioner
	adminEmails map[string]struct{}
	now         func() time.Time
}

func NewDashboardService(
	users *repository.UserRepository,
	timerEngine *timer.Engine,
	summaryEngine *summary.Engine,
	rooms *room.Provisioner,
	adminEmails []string,
) *DashboardService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[normalizeEmail(email)] = struct{}{}
	}
	return &DashboardService{
		users:       users,
		timer:       timerEngine,
		summary:     summaryEngine,
		rooms:       rooms,
		adminEmails: admins,
		now:         time.Now,
	}
}

// Session is the dashboard state for one signed-in user, derived fresh from
// the store on each request.
type Session struct {
	User       model.User      `json:"user"`
	Attendance *model.Interval `json:"attendance"`
	Break      *model.Interval `json:"break"`
	Call       *model.Interval `json:"call"`
	RoomURL    string          `json:"roomUrl,omitempty"`
	TaskTypes  []string        `json:"taskTypes"`
	ServerTime time.Time       `json:"serverTime"`
}

func (s *DashboardService) Session(ctx context.Context, account *model.Account) (*Session, *apperrors.APIError) {
	user, apiErr := s.ensureUser(ctx, account)
	if apiErr != nil {
		return nil, apiErr
	}
	return s.load(ctx, *user)
}

func (s *DashboardService) ClockIn(ctx context.Context, account *model.Account) (*Session, *apperrors.APIError) {
	return s.open(ctx, account, model.KindAttendance, func(*Session) timer.Extra {
		return timer.Extra{}
	})
}

func (s *DashboardService) ClockOut(ctx context.Context, account *model.Account) (*Session, *apperrors.APIError) {
	return s.close(ctx, account, model.KindAttendance)
}

// StartBreak links the break to the attendance interval open right now, if any.
func (s *DashboardService) StartBreak(ctx context.Context, account *model.Account) (*Session, *apperrors.APIError) {
	return s.open(ctx, account, model.KindBreak, func(session *Session) timer.Extra {
		var extra timer.Extra
		if session.Attendance != nil {
			attendanceID := session.Attendance.ID
			extra.AttendanceID = &attendanceID
		}
		return extra
	})
}

func (s *DashboardService) EndBreak(ctx context.Context, account *model.Account) (*Session, *apperrors.APIError) {
	return s.close(ctx, account, model.KindBreak)
}

func (s *DashboardService) StartCall(ctx context.Context, account *model.Account, taskType, notes string) (*Session, *apperrors.APIError) {
	if !model.IsValidTaskType(taskType) {
		return nil, apperrors.BadRequest("invalid_task_type", "taskType must be one of "+strings.Join(model.TaskTypes, ", "))
	}
	if len(notes) > maxNotesLength {
		return nil, apperrors.BadRequest("invalid_notes", "notes are too long")
	}

	return s.open(ctx, account, model.KindCall, func(session *Session) timer.Extra {
		return timer.Extra{
			TaskType: taskType,
			Notes:    notes,
			RoomID:   s.rooms.NewRoomID(session.User.ID),
		}
	})
}

func (s *DashboardService) EndCall(ctx context.Context, account *model.Account) (*Session, *apperrors.APIError) {
	return s.close(ctx, account, model.KindCall)
}

func (s *DashboardService) Users(ctx context.Context, account *model.Account) ([]model.User, *apperrors.APIError) {
	if _, apiErr := s.requireAdmin(ctx, account); apiErr != nil {
		return nil, apiErr
	}

	users, err := s.users.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list users")
		return nil, apperrors.Unavailable("failed to list users")
	}
	return users, nil
}

// Summary returns the end-of-day report for rawDate (YYYY-MM-DD, today in UTC
// when empty), optionally restricted to a single user id.
func (s *DashboardService) Summary(ctx context.Context, account *model.Account, rawDate, userID string) (*summary.Report, *apperrors.APIError) {
	if _, apiErr := s.requireAdmin(ctx, account); apiErr != nil {
		return nil, apiErr
	}

	date := s.now().UTC()
	if rawDate != "" {
		parsed, err := time.Parse(model.DateLayout, rawDate)
		if err != nil {
			return nil, apperrors.BadRequest("invalid_date", "date must be formatted as YYYY-MM-DD")
		}
		date = parsed
	}
	if userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			return nil, apperrors.BadRequest("invalid_user_id", "userId must be a user id")
		}
	}

	report, err := s.summary.Report(ctx, date, userID)
	if err != nil {
		log.Error().Err(err).Str("date", model.DayOf(date)).Msg("build summary")
		return nil, apperrors.Unavailable("failed to build summary")
	}
	return report, nil
}

func (s *DashboardService) open(
	ctx context.Context,
	account *model.Account,
	kind model.Kind,
	extraFor func(*Session) timer.Extra,
) (*Session, *apperrors.APIError) {
	session, apiErr := s.Session(ctx, account)
	if apiErr != nil {
		return nil, apiErr
	}

	if current := session.open(kind); current != nil {
		return nil, apperrors.Conflict("interval_already_open", string(kind)+" is already in progress", map[string]interface{}{
			"session": session,
		})
	}

	interval, err := s.timer.Open(ctx, kind, session.User.ID, extraFor(session))
	if err != nil {
		return nil, s.engineError(err, kind, session.User.ID)
	}
	log.Info().Str("user_id", session.User.ID).Str("kind", string(kind)).Str("interval_id", interval.ID).Msg("interval opened")

	return s.load(ctx, session.User)
}

func (s *DashboardService) close(ctx context.Context, account *model.Account, kind model.Kind) (*Session, *apperrors.APIError) {
	session, apiErr := s.Session(ctx, account)
	if apiErr != nil {
		return nil, apiErr
	}

	current := session.open(kind)
	if current == nil {
		return nil, apperrors.Conflict("not_open", "no "+string(kind)+" is in progress", nil)
	}

	interval, err := s.timer.Close(ctx, kind, current.ID)
	if err != nil {
		return nil, s.engineError(err, kind, session.User.ID)
	}
	log.Info().
		Str("user_id", session.User.ID).
		Str("kind", string(kind)).
		Str("interval_id", interval.ID).
		Int("duration", *interval.Duration).
		Msg("interval closed")

	return s.load(ctx, session.User)
}

func (s *DashboardService) load(ctx context.Context, user model.User) (*Session, *apperrors.APIError) {
	session := &Session{
		User:       user,
		TaskTypes:  model.TaskTypes,
		ServerTime: s.now().UTC(),
	}

	for _, slot := range []struct {
		kind model.Kind
		dst  **model.Interval
	}{
		{model.KindAttendance, &session.Attendance},
		{model.KindBreak, &session.Break},
		{model.KindCall, &session.Call},
	} {
		interval, err := s.timer.FindOpen(ctx, slot.kind, user.ID)
		if err != nil {
			return nil, s.engineError(err, slot.kind, user.ID)
		}
		*slot.dst = interval
	}

	if session.Call != nil {
		session.RoomURL = s.rooms.JoinURL(session.Call.RoomID)
	}
	return session, nil
}

// ensureUser returns the dashboard user for account, creating it on first
// access. Bootstrap admins are recognised by e-mail.
func (s *DashboardService) ensureUser(ctx context.Context, account *model.Account) (*model.User, *apperrors.APIError) {
	if account == nil {
		return nil, apperrors.Unauthorized("")
	}

	user, err := s.users.GetByAuthID(ctx, account.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Error().Err(err).Str("account_id", account.ID).Msg("lookup user")
		return nil, apperrors.Unavailable("failed to load user")
	}

	role := model.RoleAgent
	if _, ok := s.adminEmails[normalizeEmail(account.Email)]; ok {
		role = model.RoleAdmin
	}
	user = &model.User{
		ID:        uuid.NewString(),
		AuthID:    account.ID,
		FullName:  displayName(account.Email),
		Role:      role,
		CreatedAt: s.now().UTC(),
	}

	err = s.users.Create(ctx, user)
	if errors.Is(err, repository.ErrConflict) {
		// Another request created it first.
		user, err = s.users.GetByAuthID(ctx, account.ID)
	}
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID).Msg("create user")
		return nil, apperrors.Unavailable("failed to create user")
	}
	log.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("dashboard user created")
	return user, nil
}

func (s *DashboardService) requireAdmin(ctx context.Context, account *model.Account) (*model.User, *apperrors.APIError) {
	user, apiErr := s.ensureUser(ctx, account)
	if apiErr != nil {
		return nil, apiErr
	}
	if !user.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}
	return user, nil
}

func (s *DashboardService) engineError(err error, kind model.Kind, userID string) *apperrors.APIError {
	switch {
	case errors.Is(err, timer.ErrConflict):
		return apperrors.Conflict("interval_already_open", string(kind)+" is already in progress", nil)
	case errors.Is(err, timer.ErrAlreadyClosed):
		return apperrors.Conflict("interval_already_closed", string(kind)+" was already ended", nil)
	case errors.Is(err, timer.ErrNotFound):
		return apperrors.NotFound("interval_not_found", string(kind)+" not found")
	case errors.Is(err, timer.ErrUpstreamUnavailable):
		log.Error().Err(err).Str("user_id", userID).Str("kind", string(kind)).Msg("data store request failed")
		return apperrors.Unavailable("")
	default:
		log.Error().Err(err).Str("user_id", userID).Str("kind", string(kind)).Msg("interval operation failed")
		return apperrors.Internal("")
	}
}

func (s *Session) open(kind model.Kind) *model.Interval {
	switch kind {
	case model.KindAttendance:
		return s.Attendance
	case model.KindBreak:
		return s.Break
	case model.KindCall:
		return s.Call
	}
	return nil
}

func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return local
}

package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vansh-000/CampusOne/internal/application/port"
	"github.com/vansh-000/CampusOne/internal/domain/entity"
	"github.com/vansh-000/CampusOne/internal/domain/workflow"
	"github.com/vansh-000/CampusOne/internal/infrastructure/persistence/repository"
	"github.com/vansh-000/CampusOne/internal/infrastructure/persistence/sqlite"
	"github.com/vansh-000/CampusOne/migrations"
	"github.com/vansh-000/CampusOne/pkg/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, migrations.Files, logger).Run())
	return db
}

func seedUser(t *testing.T, repo port.UserRepository, institutionID, email, role string) *entity.User {
	t.Helper()
	user := &entity.User{
		InstitutionID: institutionID,
		Name:          "Test " + email,
		Email:         email,
		Role:          role,
		Active:        true,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestApplicationRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	apps := repository.NewApplicationRepository(db.DB, logger)
	ctx := context.Background()

	applicant := seedUser(t, users, "inst-1", "student@college.edu", entity.RoleStudent)

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	app := &entity.Application{
		ApplicantID:     applicant.ID,
		InstitutionID:   "inst-1",
		ApplicationType: entity.ApplicationTypeLeave,
		Subject:         "Medical leave",
		Description:     "Three days of medical leave",
		StartDate:       &start,
		EndDate:         &end,
		CurrentStatus:   workflow.StatusPending,
	}
	require.NoError(t, apps.Create(ctx, app))
	require.NotEmpty(t, app.ID)

	got, err := apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)
	assert.Equal(t, workflow.StatusPending, got.CurrentStatus)
	assert.Equal(t, "Medical leave", got.Subject)
	require.NotNil(t, got.StartDate)
	assert.True(t, start.Equal(*got.StartDate))
	assert.Empty(t, got.CurrentStepID)

	_, err = apps.GetByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestApplicationRepository_SetInitialStep(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	apps := repository.NewApplicationRepository(db.DB, logger)
	ctx := context.Background()

	applicant := seedUser(t, users, "inst-1", "student@college.edu", entity.RoleStudent)
	app := &entity.Application{
		ApplicantID:     applicant.ID,
		InstitutionID:   "inst-1",
		ApplicationType: entity.ApplicationTypeGeneral,
		Subject:         "Bonafide certificate",
		Description:     "Need a bonafide certificate",
		CurrentStatus:   workflow.StatusPending,
	}
	require.NoError(t, apps.Create(ctx, app))

	require.NoError(t, apps.SetInitialStep(ctx, app.ID, "node-1"))

	got, err := apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "node-1", got.InitialStepID)
	assert.Equal(t, "node-1", got.CurrentStepID)

	// Binding a second time must fail: the first node is set exactly once.
	err = apps.SetInitialStep(ctx, app.ID, "node-2")
	assert.ErrorIs(t, err, port.ErrConflict)
}

func TestApplicationRepository_AdvanceStep_OptimisticConcurrency(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	apps := repository.NewApplicationRepository(db.DB, logger)
	ctx := context.Background()

	applicant := seedUser(t, users, "inst-1", "student@college.edu", entity.RoleStudent)
	app := &entity.Application{
		ApplicantID:     applicant.ID,
		InstitutionID:   "inst-1",
		ApplicationType: entity.ApplicationTypeLeave,
		Subject:         "Leave",
		Description:     "Leave request",
		CurrentStatus:   workflow.StatusPending,
	}
	require.NoError(t, apps.Create(ctx, app))
	require.NoError(t, apps.SetInitialStep(ctx, app.ID, "node-1"))

	require.NoError(t, apps.AdvanceStep(ctx, app.ID, "node-1", "node-2", workflow.StatusForwarded))

	got, err := apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "node-2", got.CurrentStepID)
	assert.Equal(t, workflow.StatusForwarded, got.CurrentStatus)

	// A second actor still holding node-1 as the expected step loses the race.
	err = apps.AdvanceStep(ctx, app.ID, "node-1", "node-3", workflow.StatusApproved)
	assert.ErrorIs(t, err, port.ErrConflict)

	got, err = apps.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "node-2", got.CurrentStepID)
	assert.Equal(t, workflow.StatusForwarded, got.CurrentStatus)
}

func TestApplicationRepository_ListByApplicant(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	apps := repository.NewApplicationRepository(db.DB, logger)
	ctx := context.Background()

	applicant := seedUser(t, users, "inst-1", "student@college.edu", entity.RoleStudent)
	other := seedUser(t, users, "inst-1", "other@college.edu", entity.RoleStudent)

	for i, subject := range []string{"first", "second"} {
		app := &entity.Application{
			ApplicantID:     applicant.ID,
			InstitutionID:   "inst-1",
			ApplicationType: entity.ApplicationTypeGeneral,
			Subject:         subject,
			Description:     subject,
			CurrentStatus:   workflow.StatusPending,
			CreatedAt:       time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, apps.Create(ctx, app))
	}
	require.NoError(t, apps.Create(ctx, &entity.Application{
		ApplicantID:     other.ID,
		InstitutionID:   "inst-1",
		ApplicationType: entity.ApplicationTypeGeneral,
		Subject:         "not mine",
		Description:     "not mine",
		CurrentStatus:   workflow.StatusPending,
	}))

	list, err := apps.ListByApplicant(ctx, applicant.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Subject)
	assert.Equal(t, "first", list[1].Subject)

	empty, err := apps.ListByApplicant(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestApplicationRepository_ListByIDs_StatusFilter(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	apps := repository.NewApplicationRepository(db.DB, logger)
	ctx := context.Background()

	applicant := seedUser(t, users, "inst-1", "student@college.edu", entity.RoleStudent)

	ids := []string{}
	for _, status := range []workflow.Status{workflow.StatusPending, workflow.StatusForwarded, workflow.StatusApproved} {
		app := &entity.Application{
			ApplicantID:     applicant.ID,
			InstitutionID:   "inst-1",
			ApplicationType: entity.ApplicationTypeGeneral,
			Subject:         string(status),
			Description:     string(status),
			CurrentStatus:   status,
		}
		require.NoError(t, apps.Create(ctx, app))
		ids = append(ids, app.ID)
	}

	open, err := apps.ListByIDs(ctx, ids, []workflow.Status{workflow.StatusPending, workflow.StatusForwarded})
	require.NoError(t, err)
	assert.Len(t, open, 2)
	for _, app := range open {
		assert.NotEqual(t, workflow.StatusApproved, app.CurrentStatus)
	}

	all, err := apps.ListByIDs(ctx, ids, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := apps.ListByIDs(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFlowNodeRepository_ChainLinking(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	nodes := repository.NewFlowNodeRepository(db.DB, logger)
	ctx := context.Background()

	first := &entity.ApplicationFlowNode{
		ApplicationID: "app-1",
		FromUserID:    "student-1",
		ToUserID:      "warden-1",
		Message:       entity.SubmissionMessage,
		ActionType:    workflow.ActionForwarded,
		CreatedAt:     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, nodes.Create(ctx, first))
	require.NotEmpty(t, first.ID)

	second := &entity.ApplicationFlowNode{
		ApplicationID:  "app-1",
		FromUserID:     "warden-1",
		ToUserID:       "dean-1",
		Message:        "Please review",
		ActionType:     workflow.ActionForwarded,
		PreviousNodeID: first.ID,
		CreatedAt:      time.Date(2026, 2, 1, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, nodes.Create(ctx, second))
	require.NoError(t, nodes.SetNextNode(ctx, first.ID, second.ID))

	// The successor pointer is written exactly once.
	err := nodes.SetNextNode(ctx, first.ID, "node-x")
	assert.ErrorIs(t, err, port.ErrConflict)

	got, err := nodes.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.NextNodeID)
	assert.Empty(t, got.PreviousNodeID)

	history, err := nodes.ListByApplication(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
	assert.Equal(t, first.ID, history[1].PreviousNodeID)
}

func TestFlowNodeRepository_RecipientAndActorQueries(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	nodes := repository.NewFlowNodeRepository(db.DB, logger)
	ctx := context.Background()

	require.NoError(t, nodes.Create(ctx, &entity.ApplicationFlowNode{
		ApplicationID: "app-1",
		FromUserID:    "student-1",
		ToUserID:      "warden-1",
		ActionType:    workflow.ActionForwarded,
	}))
	require.NoError(t, nodes.Create(ctx, &entity.ApplicationFlowNode{
		ApplicationID: "app-2",
		FromUserID:    "student-2",
		ToUserID:      "warden-1",
		ActionType:    workflow.ActionForwarded,
	}))
	require.NoError(t, nodes.Create(ctx, &entity.ApplicationFlowNode{
		ApplicationID: "app-2",
		FromUserID:    "warden-1",
		ToUserID:      "student-2",
		ActionType:    workflow.ActionApproved,
	}))

	inbox, err := nodes.ListApplicationIDsByRecipient(ctx, "warden-1", workflow.ActionForwarded)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app-1", "app-2"}, inbox)

	acted, err := nodes.ListApplicationIDsByActor(ctx, "warden-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"app-2"}, acted)

	none, err := nodes.ListApplicationIDsByRecipient(ctx, "dean-1", workflow.ActionForwarded)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUserRepository_DuplicateEmailScopedToInstitution(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	ctx := context.Background()

	first := seedUser(t, users, "inst-1", "shared@college.edu", entity.RoleStudent)

	dup := &entity.User{
		InstitutionID: "inst-1",
		Name:          "Duplicate",
		Email:         "shared@college.edu",
		Role:          entity.RoleStudent,
		Active:        true,
	}
	err := users.Create(ctx, dup)
	assert.ErrorIs(t, err, port.ErrDuplicate)

	// Same email in another institution is fine.
	other := &entity.User{
		InstitutionID: "inst-2",
		Name:          "Other campus",
		Email:         "shared@college.edu",
		Role:          entity.RoleStudent,
		Active:        true,
	}
	require.NoError(t, users.Create(ctx, other))

	got, err := users.GetByEmail(ctx, "inst-1", "shared@college.edu")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = users.GetByEmail(ctx, "inst-3", "shared@college.edu")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestStudentRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	students := repository.NewStudentRepository(db.DB, logger)
	ctx := context.Background()

	user := seedUser(t, users, "inst-1", "student@college.edu", entity.RoleStudent)

	student := &entity.Student{
		UserID:           user.ID,
		InstitutionID:    "inst-1",
		EnrollmentNumber: "2026CSE042",
		BranchCode:       "CSE",
		AdmissionYear:    2026,
	}
	require.NoError(t, students.Create(ctx, student))

	got, err := students.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026CSE042", got.EnrollmentNumber)
	assert.Equal(t, "CSE", got.BranchCode)

	dup := &entity.Student{
		UserID:           user.ID,
		InstitutionID:    "inst-1",
		EnrollmentNumber: "2026CSE042",
	}
	err = students.Create(ctx, dup)
	assert.ErrorIs(t, err, port.ErrDuplicate)
}

func TestFacultyRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	users := repository.NewUserRepository(db.DB, logger)
	faculty := repository.NewFacultyRepository(db.DB, logger)
	ctx := context.Background()

	user := seedUser(t, users, "inst-1", "prof@college.edu", entity.RoleFaculty)

	record := &entity.Faculty{
		UserID:         user.ID,
		InstitutionID:  "inst-1",
		EmployeeCode:   "EMP-007",
		DepartmentCode: "CSE",
		Designation:    "Assistant Professor",
	}
	require.NoError(t, faculty.Create(ctx, record))

	got, err := faculty.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "EMP-007", got.EmployeeCode)
	assert.Equal(t, "Assistant Professor", got.Designation)

	_, err = faculty.GetByUserID(ctx, "nobody")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestImportJobRepository_RowAccounting(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	imports := repository.NewImportJobRepository(db.DB, logger)
	ctx := context.Background()

	job := &entity.ImportJob{
		InstitutionID: "inst-1",
		Kind:          entity.ImportKindStudents,
		Total:         3,
		Status:        entity.ImportStatusProcessing,
	}
	require.NoError(t, imports.Create(ctx, job))

	require.NoError(t, imports.RecordRowResult(ctx, job.ID, 1, true, ""))
	require.NoError(t, imports.RecordRowResult(ctx, job.ID, 2, false, "missing email"))

	got, err := imports.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Processed)
	assert.Equal(t, 1, got.Success)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, entity.ImportStatusProcessing, got.Status)
	assert.Nil(t, got.FinishedAt)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, 2, got.Errors[0].Row)
	assert.Equal(t, "missing email", got.Errors[0].Reason)

	// Final row flips the job to completed.
	require.NoError(t, imports.RecordRowResult(ctx, job.ID, 3, true, ""))

	got, err = imports.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Processed)
	assert.Equal(t, entity.ImportStatusCompleted, got.Status)
	assert.NotNil(t, got.FinishedAt)

	err = imports.RecordRowResult(ctx, "no-such-job", 1, true, "")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	txManager := sqlite.NewDB(db.DB, logger)
	users := repository.NewUserRepository(db.DB, logger)
	students := repository.NewStudentRepository(db.DB, logger)
	ctx := context.Background()

	existing := seedUser(t, users, "inst-1", "existing@college.edu", entity.RoleStudent)
	require.NoError(t, students.Create(ctx, &entity.Student{
		UserID:           existing.ID,
		InstitutionID:    "inst-1",
		EnrollmentNumber: "2026CSE001",
	}))

	// The duplicate enrollment number fails the second write, so the user
	// insert from the same transaction must not survive.
	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		user := &entity.User{
			InstitutionID: "inst-1",
			Name:          "New Student",
			Email:         "new@college.edu",
			Role:          entity.RoleStudent,
			Active:        true,
		}
		if err := users.Create(txCtx, user); err != nil {
			return err
		}
		return students.Create(txCtx, &entity.Student{
			UserID:           user.ID,
			InstitutionID:    "inst-1",
			EnrollmentNumber: "2026CSE001",
		})
	})
	require.ErrorIs(t, err, port.ErrDuplicate)

	_, err = users.GetByEmail(ctx, "inst-1", "new@college.edu")
	assert.ErrorIs(t, err, port.ErrNotFound)
}

func TestWithTransaction_CommitsAllWrites(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	txManager := sqlite.NewDB(db.DB, logger)
	apps := repository.NewApplicationRepository(db.DB, logger)
	nodes := repository.NewFlowNodeRepository(db.DB, logger)
	users := repository.NewUserRepository(db.DB, logger)
	ctx := context.Background()

	applicant := seedUser(t, users, "inst-1", "student@college.edu", entity.RoleStudent)

	var appID string
	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		app := &entity.Application{
			ApplicantID:     applicant.ID,
			InstitutionID:   "inst-1",
			ApplicationType: entity.ApplicationTypeLeave,
			Subject:         "Leave",
			Description:     "Leave request",
			CurrentStatus:   workflow.StatusPending,
		}
		if err := apps.Create(txCtx, app); err != nil {
			return err
		}
		node := &entity.ApplicationFlowNode{
			ApplicationID: app.ID,
			FromUserID:    applicant.ID,
			ToUserID:      "warden-1",
			Message:       entity.SubmissionMessage,
			ActionType:    workflow.ActionForwarded,
		}
		if err := nodes.Create(txCtx, node); err != nil {
			return err
		}
		appID = app.ID
		return apps.SetInitialStep(txCtx, app.ID, node.ID)
	})
	require.NoError(t, err)

	got, err := apps.GetByID(ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, got.CurrentStatus)
	assert.NotEmpty(t, got.InitialStepID)
	assert.Equal(t, got.InitialStepID, got.CurrentStepID)

	history, err := nodes.ListByApplication(ctx, appID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.SubmissionMessage, history[0].Message)
}

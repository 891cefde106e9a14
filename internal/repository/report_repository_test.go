package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/incubatehub/compliance-api/internal/models"
)

var reportJobRowColumns = []string{"id", "company_code", "type", "params", "status", "progress", "result_url", "file_path", "created_by", "created_at", "finished_at", "error_message"}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WithArgs(sqlmock.AnyArg(), "ACME", "documents", sqlmock.AnyArg(), "QUEUED", 0, nil, nil, "user-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		CompanyCode: "ACME",
		Type:        models.ReportTypeDocuments,
		Params:      models.ReportJobParams{CompanyCode: "ACME", Format: models.ReportFormatXLSX},
		CreatedBy:   "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)

	rows := sqlmock.NewRows(reportJobRowColumns).
		AddRow(job.ID, "ACME", "documents", `{"companyCode":"ACME","format":"xlsx","extras":{}}`, "QUEUED", 0, nil, nil, "user-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE id = $1")).
		WithArgs(job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, fetched.ID)
	require.Equal(t, models.ReportFormatXLSX, fetched.Params.Format)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE id = $1")).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(reportJobRowColumns))

	_, err := repo.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, ErrReportJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	status := models.ReportStatusFinished
	progress := 100
	result := "/api/v1/export/token"
	path := "ACME/job-1.csv"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, progress = $2, result_url = $3, file_path = $4, finished_at = $5 WHERE id = $6")).
		WithArgs(status, progress, result, path, now, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FilePath:   &path,
		FinishedAt: &now,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET progress = $1 WHERE id = $2")).
		WithArgs(progress, "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(context.Background(), "ghost", UpdateReportJobParams{Progress: &progress})
	require.ErrorIs(t, err, ErrReportJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListQueuedAndFinished(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(reportJobRowColumns).
			AddRow("job-1", "ACME", "participants", `{"companyCode":"ACME","format":"csv"}`, "QUEUED", 0, nil, nil, "user-1", time.Now(), nil, nil))
	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE status = 'FINISHED' AND finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at ASC LIMIT $2")).
		WithArgs(sqlmock.AnyArg(), 50).
		WillReturnRows(sqlmock.NewRows(reportJobRowColumns).
			AddRow("job-2", "ACME", "documents", `{"companyCode":"ACME","format":"pdf"}`, "FINISHED", 100, "/api/v1/export/t", "ACME/job-2.pdf", "user-1", time.Now().Add(-48*time.Hour), time.Now().Add(-25*time.Hour), nil))
	jobs, err = repo.ListFinishedBefore(context.Background(), time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotNil(t, jobs[0].FilePath)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryMarkExpired(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	require.NoError(t, repo.MarkExpired(context.Background(), nil))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, result_url = NULL, file_path = NULL WHERE id IN ($2, $3)")).
		WithArgs(models.ReportStatusExpired, "job-1", "job-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.MarkExpired(context.Background(), []string{"job-1", "job-2"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

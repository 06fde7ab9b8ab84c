package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gfz-dataservices/grobi/metadata"
)

const testDOI = "10.5880/gfz.2024.001"

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func expectResource(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery(q("SELECT id FROM resource WHERE identifier = ?")).
		WithArgs(testDOI).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))
}

func TestDSN(t *testing.T) {
	dsn := Config{Host: "db.example.org", Database: "sumario-pmd", User: "grobi", Password: "secret"}.DSN()

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.example.org:3306", cfg.Addr)
	assert.Equal(t, "sumario-pmd", cfg.DBName)
	assert.Equal(t, "grobi", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestResourceIDNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q("SELECT id FROM resource")).
		WithArgs(testDOI).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.ResourceID(context.Background(), testDOI)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteAuthors(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	expectResource(mock, 7)
	mock.ExpectQuery(q("SELECT DISTINCT ra.order")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"order"}).AddRow(1).AddRow(2))
	mock.ExpectExec(q("DELETE FROM role WHERE resourceagent_resource_id = ? AND role = 'Creator'")).
		WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM resourceagent")).WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM resourceagent")).WithArgs(7, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(insertAgent)).
		WithArgs(7, 1, "Doe, Jane", "Jane", "Doe", "0000-0001-5000-0007", "ORCID", "Personal").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(insertRole)).WithArgs("Creator", 7, 1).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(insertAgent)).
		WithArgs(7, 2, "GFZ Data Services", nil, nil, nil, nil, "Organizational").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(q(insertRole)).WithArgs("Creator", 7, 2).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.WriteAuthors(context.Background(), testDOI, []metadata.Creator{
		{Name: "Doe, Jane", GivenName: "Jane", FamilyName: "Doe", NameIdentifier: "https://orcid.org/0000-0001-5000-0007"},
		{Name: "GFZ Data Services", NameType: metadata.NameTypeOrganizational},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteAuthorsRollsBack(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	expectResource(mock, 7)
	mock.ExpectQuery(q("SELECT DISTINCT ra.order")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"order"}))
	mock.ExpectExec(q("DELETE FROM role")).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q(insertAgent)).WillReturnError(errors.New("duplicate entry"))
	mock.ExpectRollback()

	err := s.WriteAuthors(context.Background(), testDOI, []metadata.Creator{{Name: "Doe, Jane", FamilyName: "Doe"}})

	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, testDOI, storeErr.DOI)
	assert.Contains(t, err.Error(), "duplicate entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteAuthorsUnknownDOI(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM resource")).
		WithArgs(testDOI).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := s.WriteAuthors(context.Background(), testDOI, nil)
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteContributors(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	expectResource(mock, 7)
	mock.ExpectQuery(q("SELECT DISTINCT ra.order")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"order"}).AddRow(3))
	mock.ExpectExec(q("DELETE FROM contactinfo")).WithArgs(7, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM role")).WithArgs(7, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM role")).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(0))
	mock.ExpectExec(q("DELETE FROM resourceagent")).WithArgs(7, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT COALESCE(MAX(`order`), 0)")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"max_order"}).AddRow(2))

	mock.ExpectExec(q(insertAgent)).
		WithArgs(7, 3, "Doe, Jane", "Jane", "Doe", nil, nil, "Personal").
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(q(insertRole)).WithArgs("ContactPerson", 7, 3).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(insertRole)).WithArgs("pointOfContact", 7, 3).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(insertRole)).WithArgs("Other", 7, 3).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q(insertContact)).
		WithArgs(7, 3, "jane@example.org", nil, "Data Manager").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectExec(q(insertAgent)).
		WithArgs(7, 4, "GFZ", nil, nil, "https://ror.org/04z8jg394", "ROR", "Organizational").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectExec(q(insertRole)).WithArgs("HostingInstitution", 7, 4).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.WriteContributors(context.Background(), testDOI, []metadata.Contributor{
		{
			GivenName:        "Jane",
			FamilyName:       "Doe",
			ContributorTypes: []string{"ContactPerson", "pointOfContact", "Bogus"},
			Email:            "jane@example.org",
			Position:         "Data Manager",
		},
		{
			Name:             "GFZ",
			NameType:         metadata.NameTypeOrganizational,
			NameIdentifier:   "https://ror.org/04z8jg394",
			ContributorTypes: []string{"HostingInstitution"},
			Email:            "ignored@example.org",
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteContributorsKeepsCreatorAgent(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	expectResource(mock, 7)
	mock.ExpectQuery(q("SELECT DISTINCT ra.order")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"order"}).AddRow(1))
	mock.ExpectExec(q("DELETE FROM contactinfo")).WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("DELETE FROM role")).WithArgs(7, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM role")).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"cnt"}).AddRow(1))
	mock.ExpectQuery(q("SELECT COALESCE(MAX(`order`), 0)")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"max_order"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, s.WriteContributors(context.Background(), testDOI, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWritePublisher(t *testing.T) {
	s, mock := newMock(t)
	expectResource(mock, 7)
	mock.ExpectExec(q("UPDATE resource SET publisher = ?, updated_at = NOW() WHERE identifier = ?")).
		WithArgs("GFZ Data Services", testDOI).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.WritePublisher(context.Background(), testDOI, metadata.Publisher{Name: " GFZ Data Services ", Lang: "en"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWritePublisherRejectsEmptyName(t *testing.T) {
	s, mock := newMock(t)

	err := s.WritePublisher(context.Background(), testDOI, metadata.Publisher{})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDownloadURLs(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q("SELECT r.identifier, f.filename, f.location, f.description, f.format, f.size")).
		WillReturnRows(sqlmock.NewRows([]string{"identifier", "filename", "location", "description", "format", "size"}).
			AddRow(testDOI, "data.zip", "https://download.example.org/data.zip", "Data", "zip", 2048).
			AddRow(testDOI, "readme.txt", "https://download.example.org/readme.txt", nil, nil, nil))

	files, err := s.DownloadURLs(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, File{DOI: testDOI, Filename: "data.zip", URL: "https://download.example.org/data.zip", Description: "Data", Format: "zip", Size: 2048}, files[0])
	assert.Equal(t, int64(0), files[1].Size)
	assert.Empty(t, files[1].Format)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFile(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(q("SELECT f.location, f.description, f.format, f.size")).
		WithArgs(testDOI, "data.zip").
		WillReturnRows(sqlmock.NewRows([]string{"location", "description", "format", "size"}).
			AddRow("https://download.example.org/data.zip", nil, "zip", 2048))
	mock.ExpectQuery(q("SELECT f.location, f.description, f.format, f.size")).
		WithArgs(testDOI, "missing.zip").
		WillReturnRows(sqlmock.NewRows([]string{"location", "description", "format", "size"}))

	f, err := s.File(context.Background(), testDOI, "data.zip")
	require.NoError(t, err)
	assert.Equal(t, File{DOI: testDOI, Filename: "data.zip", URL: "https://download.example.org/data.zip", Format: "zip", Size: 2048}, f)

	_, err = s.File(context.Background(), testDOI, "missing.zip")
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFile(t *testing.T) {
	const update = "UPDATE file SET location = ?, description = ?, format = ?, size = ? WHERE resource_id = ? AND filename = ?"
	f := File{DOI: testDOI, Filename: "data.zip", URL: "https://download.example.org/new.zip", Description: "Data", Format: "zip", Size: 4096}

	t.Run("commits", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		expectResource(mock, 7)
		mock.ExpectExec(q(update)).
			WithArgs(f.URL, f.Description, f.Format, f.Size, 7, f.Filename).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.UpdateFile(context.Background(), f))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no such file rolls back", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		expectResource(mock, 7)
		mock.ExpectExec(q(update)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, s.UpdateFile(context.Background(), f), ErrFileNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestContacts(t *testing.T) {
	s, mock := newMock(t)
	expectResource(mock, 7)
	mock.ExpectQuery(q("SELECT ra.name, ra.firstname, ra.lastname, ci.email")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"name", "firstname", "lastname", "email", "website", "position"}).
			AddRow("Doe, Jane", "Jane", "Doe", "jane@example.org", nil, "Curator"))

	contacts, err := s.Contacts(context.Background(), testDOI)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "jane@example.org", contacts[0].Email)
	assert.Equal(t, "Curator", contacts[0].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactMatches(t *testing.T) {
	k := Contact{Name: "Doe, Jane", FirstName: "Jane", LastName: "Doe"}

	tests := []struct {
		name string
		c    metadata.Contributor
		want bool
	}{
		{"by parts", metadata.Contributor{GivenName: "jane", FamilyName: "DOE"}, true},
		{"by full name", metadata.Contributor{Name: "Doe, Jane"}, true},
		{"other person", metadata.Contributor{Name: "Doe, John", GivenName: "John", FamilyName: "Doe"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, k.Matches(tt.c))
		})
	}
}

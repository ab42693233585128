package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/pbis-api/internal/models"
	appErrors "github.com/noah-isme/pbis-api/pkg/errors"
)

type fakeRosterSrv struct {
	status     *models.RosterStatus
	hit        bool
	updateErr  error
	lastCode   string
	lastUpdate models.StudentUpdate
}

func (f *fakeRosterSrv) Status(context.Context) (*models.RosterStatus, bool, error) {
	return f.status, f.hit, nil
}

func (f *fakeRosterSrv) Update(_ context.Context, code string, update models.StudentUpdate) (*models.Student, error) {
	f.lastCode = code
	f.lastUpdate = update
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.Student{StudentCode: code}, nil
}

type fakeIdentifierSrv struct{}

func (fakeIdentifierSrv) Mapping(context.Context) (map[string]models.StudentIdentity, error) {
	return map[string]models.StudentIdentity{"E1": {StudentCode: "S1"}}, nil
}

func TestRosterHandlerStatusReportsCacheHit(t *testing.T) {
	handler := NewRosterHandler(&fakeRosterSrv{status: &models.RosterStatus{TotalCount: 2, EnrolledCount: 1}, hit: true}, fakeIdentifierSrv{})
	c, rec := newTestContext(http.MethodGet, "/tier/status", nil)

	handler.Status(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, string(envelope.Data), `"enrolled_count":1`)
}

func TestRosterHandlerUpdatePassesPartialBody(t *testing.T) {
	srv := &fakeRosterSrv{}
	handler := NewRosterHandler(srv, fakeIdentifierSrv{})
	c, rec := newTestContext(http.MethodPut, "/tier/status/S1", map[string]interface{}{"tier3": true})
	c.Params = gin.Params{{Key: "code", Value: "S1"}}

	handler.Update(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "S1", srv.lastCode)
	if assert.NotNil(t, srv.lastUpdate.Tier3) {
		assert.True(t, *srv.lastUpdate.Tier3)
	}
	assert.Nil(t, srv.lastUpdate.Memo)
}

func TestRosterHandlerUpdateUnknownStudent(t *testing.T) {
	handler := NewRosterHandler(&fakeRosterSrv{updateErr: appErrors.Clone(appErrors.ErrNotFound, "student S9 not found")}, fakeIdentifierSrv{})
	c, rec := newTestContext(http.MethodPut, "/tier/status/S9", map[string]interface{}{"memo": "x"})
	c.Params = gin.Params{{Key: "code", Value: "S9"}}

	handler.Update(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error["code"])
}

func TestRosterHandlerMapping(t *testing.T) {
	handler := NewRosterHandler(&fakeRosterSrv{}, fakeIdentifierSrv{})
	c, rec := newTestContext(http.MethodGet, "/tier/mapping", nil)

	handler.Mapping(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeEnvelope(t, rec).Meta["count"])
}

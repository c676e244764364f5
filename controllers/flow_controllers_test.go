package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dineflow/customer-gateway/models"
	"github.com/dineflow/customer-gateway/services"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/upstream"
	"github.com/dineflow/customer-gateway/utils"
)

type fakeTableAPI struct {
	result *upstream.LookupResult
}

func (f *fakeTableAPI) LookupTable(ctx context.Context, slug, sessionToken, waitlistToken string) (*upstream.LookupResult, error) {
	return f.result, nil
}

func setupScanRouter(t *testing.T, result *upstream.LookupResult) (*gin.Engine, *services.Registry) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.StateEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	st := store.New(db)
	resolver := services.NewResolver(st, &fakeTableAPI{result: result})
	registry := services.NewRegistry()
	fc := NewFlowController(st, services.NewFlow(st, resolver, nil), resolver, registry)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("device_id", "dev-1")
		c.Next()
	})
	r.POST("/scan/:slug", fc.Scan)
	return r, registry
}

func TestScanTracksResolvedTable(t *testing.T) {
	r, registry := setupScanRouter(t, &upstream.LookupResult{
		Outcome: upstream.OutcomeLocked,
		Table:   &models.TableSnapshot{TableID: 5, TableNumber: "B5", Status: models.TableOccupied, Capacity: 4},
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scan/slug-5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	tracked := registry.All()
	assert.Len(t, tracked, 1)
	assert.Equal(t, uint(5), tracked[0].TableID)
}

func TestScanBlockedDoesNotTrack(t *testing.T) {
	r, registry := setupScanRouter(t, &upstream.LookupResult{
		Outcome: upstream.OutcomeNotFound,
	})

	// Even a previously tracked device is dropped; there is nothing left
	// for the fallback poller to watch after the purge.
	registry.Track(services.Tracking{DeviceID: "dev-1", Slug: "slug-5", ServiceType: models.ServiceDineIn, TableID: 5})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/scan/slug-5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Empty(t, registry.All())
}

package rdkit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	apperrors "github.com/turtacn/ReactEA/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{Endpoint: srv.URL + "/", RetryDelay: time.Millisecond}, nil)
	require.NoError(t, err)
	return c, srv
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestClient_React(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/react", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req reactRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "[C:1]O>>[C:1]N", req.SMARTS)
		assert.Equal(t, []string{"CCO", "O"}, req.Reactants)

		_ = json.NewEncoder(w).Encode(reactResponse{Products: []string{"CCN"}})
	})

	reactants := []*chem.Compound{chem.NewCompound("a", "CCO"), chem.NewCompound("WATER", "O")}
	rule := &chem.ReactionRule{ID: "R1", SMARTS: "[C:1]O>>[C:1]N", CoreactantsIDs: "Any;WATER"}

	products, err := c.React(context.Background(), reactants, rule)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCN"}, products)
}

func TestClient_ReactNoMatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[]}`))
	})
	products, err := c.React(context.Background(), []*chem.Compound{chem.NewCompound("a", "C")}, &chem.ReactionRule{ID: "R"})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestClient_ReactRejectedRule(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"unparsable SMARTS"}`))
	})
	_, err := c.React(context.Background(), nil, &chem.ReactionRule{ID: "R9", SMARTS: "??"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidReactionRule))
	assert.Contains(t, err.Error(), "R9")
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"products":["CC"]}`))
	})

	products, err := c.React(context.Background(), nil, &chem.ReactionRule{ID: "R"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CC"}, products)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"rdkit crashed"}`))
	})

	_, err := c.React(context.Background(), nil, &chem.ReactionRule{ID: "R"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeReactorUnavailable))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})
	_, err := c.React(context.Background(), nil, &chem.ReactionRule{ID: "R"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeExternalService))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_CancelledContext(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.React(ctx, nil, &chem.ReactionRule{ID: "R"})
	require.Error(t, err)
}

func TestClient_Standardize(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/standardize", r.URL.Path)
		var req standardizeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "OCC", req.SMILES)
		_ = json.NewEncoder(w).Encode(standardizeResponse{SMILES: "CCO", InChIKey: "LFQSCWFLJHTTHZ-UHFFFAOYSA-N"})
	})

	got, err := c.Standardize(chem.NewCompound("ethanol", "OCC"))
	require.NoError(t, err)
	assert.Equal(t, &chem.Compound{ID: "ethanol", SMILES: "CCO", InChIKey: "LFQSCWFLJHTTHZ-UHFFFAOYSA-N"}, got)
}

func TestClient_StandardizeFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"sanitization failed"}`))
	})
	_, err := c.Standardize(chem.NewCompound("x", "C1CC"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStandardizationFailed))
}

func TestClient_StandardizeEmptyResult(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"smiles":""}`))
	})
	_, err := c.Standardize(chem.NewCompound("x", "C"))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeStandardizationFailed))
}

func TestClient_Health(t *testing.T) {
	var unhealthy atomic.Bool
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	require.NoError(t, c.Health(context.Background()))

	unhealthy.Store(true)
	err := c.Health(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeReactorUnavailable))
}

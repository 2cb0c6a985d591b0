package handlers

import (
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/zigmirror/internal/infra/assets"
	"github.com/matiasleandrokruk/zigmirror/internal/infra/config"
)

// ReadErrorObserver is the minimal contract used to count asset failures.
// telemetry.Metrics satisfies this interface.
type ReadErrorObserver interface {
	ObserveReadError(listener, asset string)
}

// AssetHandler serves index and artifact files from a store. Files are read
// on every request; nothing is cached between requests.
type AssetHandler struct {
	store   *assets.Store
	policy  config.ReadErrorPolicy
	logger  *zap.Logger
	metrics ReadErrorObserver
}

// NewAssetHandler creates an AssetHandler. logger and metrics may be nil.
func NewAssetHandler(store *assets.Store, policy config.ReadErrorPolicy, logger *zap.Logger, metrics ReadErrorObserver) *AssetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetHandler{
		store:   store,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}
}

// Index reads the whole index into memory and returns it as JSON.
func (h *AssetHandler) Index(a assets.Asset) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := h.store.ReadAll(r.Context(), a)
		if err != nil {
			h.fail(w, r, a, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data) //nolint:errcheck
	})
}

// Artifact streams the asset as the response body without buffering it.
// No Content-Type is set here; net/http sniffs one from the first bytes.
func (h *AssetHandler) Artifact(a assets.Asset) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc, size, err := h.store.Open(a)
		if err != nil {
			h.fail(w, r, a, err)
			return
		}
		defer rc.Close()

		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)

		if _, err := streamArtifact(w, rc, size); err != nil {
			// Headers are already out; a client hanging up lands here.
			h.logger.Debug("artifact transfer interrupted",
				zap.String("listener", getListener(r.Context())),
				zap.String("asset", a.Name),
				zap.Error(err),
			)
		}
	})
}

// streamArtifact copies at most size bytes, the length already promised in
// Content-Length. Bytes appended to the file after it was opened are not sent.
func streamArtifact(w io.Writer, r io.Reader, size int64) (int64, error) {
	return io.Copy(w, io.LimitReader(r, size))
}

// fail applies the configured read-failure policy.
func (h *AssetHandler) fail(w http.ResponseWriter, r *http.Request, a assets.Asset, err error) {
	listener := getListener(r.Context())
	if h.metrics != nil {
		h.metrics.ObserveReadError(listener, a.Name)
	}
	h.logger.Error("asset unavailable",
		zap.String("listener", listener),
		zap.String("asset", a.Name),
		zap.String("file", h.store.Resolve(a)),
		zap.String("policy", string(h.policy)),
		zap.Error(err),
	)

	if h.policy == config.PolicyAbort {
		panic(http.ErrAbortHandler)
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

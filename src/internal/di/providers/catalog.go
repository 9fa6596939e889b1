package providers

import (
	"net/http"

	"github.com/samber/do/v2"

	"bookshelf/src/internal/booksearch"
	"bookshelf/src/internal/config"
	"bookshelf/src/internal/logger"
	"bookshelf/src/internal/opensearch"
	"bookshelf/src/internal/sru"
	"bookshelf/src/internal/transport"
)

// HTTPClientHandle wraps the outbound http.Client with Shutdownable.
type HTTPClientHandle struct {
	*http.Client
}

// Shutdown implements do.Shutdownable.
func (h *HTTPClientHandle) Shutdown() error {
	h.Client.CloseIdleConnections()
	return nil
}

// ProvideHTTPClient provides the client every catalog request goes through.
// It has no global timeout; each attempt carries its own deadline.
func ProvideHTTPClient(i do.Injector) (*HTTPClientHandle, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConnsPerHost = 4
	return &HTTPClientHandle{Client: &http.Client{Transport: t}}, nil
}

// ProvideRouter provides the relay/direct transport.
func ProvideRouter(i do.Injector) (*transport.Router, error) {
	cfg := do.MustInvoke[*config.Config](i)
	client := do.MustInvoke[*HTTPClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	router := transport.New(cfg.TransportOptions(), client.Client, log.With("component", "transport"))
	log.Debug("Transport configured", "routes", router.Routes())
	return router, nil
}

// ProvideSRUClient provides the searchRetrieve client.
func ProvideSRUClient(i do.Injector) (*sru.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	router := do.MustInvoke[*transport.Router](i)
	log := do.MustInvoke[*logger.Logger](i)

	return sru.New(sru.Options{
		Endpoint:   cfg.Catalog.SRUEndpoint,
		MaxRecords: cfg.Search.MaxRecords,
	}, router, log.With("component", "sru")), nil
}

// ProvideOpenSearchClient provides the OpenSearch feed client.
func ProvideOpenSearchClient(i do.Injector) (*opensearch.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	router := do.MustInvoke[*transport.Router](i)
	log := do.MustInvoke[*logger.Logger](i)

	return opensearch.New(opensearch.Options{
		Endpoint:     cfg.Catalog.OpenSearchEndpoint,
		DataProvider: cfg.Catalog.DataProvider,
	}, router, log.With("component", "opensearch")), nil
}

// ProvideSearchService provides the catalog service.
func ProvideSearchService(i do.Injector) (*booksearch.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	search := do.MustInvoke[*sru.Client](i)
	feed := do.MustInvoke[*opensearch.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return booksearch.New(booksearch.Options{
		Schema:     cfg.Search.Schema,
		RichSchema: cfg.Search.RichSchema,
		PageSize:   cfg.Search.PageSize,
		Covers:     cfg.Covers(),
	}, search, feed, log.With("component", "booksearch")), nil
}

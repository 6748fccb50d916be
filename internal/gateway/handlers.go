package gateway

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/apiredirector/gateway/internal/gateway/response"
	"github.com/apiredirector/gateway/internal/health"
	"github.com/apiredirector/gateway/internal/proxy"
	"github.com/apiredirector/gateway/internal/proxy/googlemaps"
	"github.com/apiredirector/gateway/internal/util"
)

// Handlers holds the gateway route handlers.
type Handlers struct {
	pipeline *Pipeline
	maps     *googlemaps.Service
	checker  *health.Checker
}

// NewHandlers creates the route handlers.
func NewHandlers(pipeline *Pipeline, maps *googlemaps.Service, checker *health.Checker) *Handlers {
	return &Handlers{pipeline: pipeline, maps: maps, checker: checker}
}

// Health serves the unauthenticated liveness report.
func (h *Handlers) Health(c *gin.Context) {
	response.OK(c, h.checker.Check())
}

// Geocode serves the dedicated geocoding endpoints. One of address or
// latlng is required; optional parameters outside the allow-list are
// dropped silently.
func (h *Handlers) Geocode(format googlemaps.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.pipeline.Execute(c, googlemaps.ServiceName, "geocode", func(proxy.Service) (*proxy.Request, error) {
			address := c.Query("address")
			latlng := c.Query("latlng")
			if address == "" && latlng == "" {
				return nil, util.NewValidationError("either address or latlng parameter is required")
			}

			extra := make(map[string]string)
			for _, param := range googlemaps.AllowedGeocodeParams {
				if value := c.Query(param); value != "" {
					extra[param] = value
				}
			}

			if address != "" {
				return h.maps.GeocodeRequest(address, format, extra), nil
			}

			lat, lng, err := parseLatLng(latlng)
			if err != nil {
				return nil, err
			}
			return h.maps.ReverseGeocodeRequest(lat, lng, format, extra), nil
		}, WithDefaultContentType(format.ContentType()))
	}
}

func parseLatLng(s string) (float64, float64, error) {
	malformed := func() error {
		err := util.NewValidationError("latlng must be formatted as lat,lng")
		err.AddField("latlng", s)
		return err
	}

	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, malformed()
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, malformed()
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, malformed()
	}
	return lat, lng, nil
}

// genericRequest is the body of the generic proxy endpoint.
type genericRequest struct {
	Service  string            `json:"service"`
	Endpoint string            `json:"endpoint"`
	Method   string            `json:"method"`
	Params   map[string]string `json:"params"`
	Headers  map[string]string `json:"headers"`
	Body     string            `json:"body"`
}

// reservedQueryParams are generic-endpoint control and credential
// parameters, never forwarded upstream.
var reservedQueryParams = map[string]bool{
	"service":    true,
	"endpoint":   true,
	"auth_token": true,
	"api_key":    true,
}

// Generic serves the generic proxy endpoint. GET carries the request
// via query parameters; other methods via a JSON body.
func (h *Handlers) Generic(c *gin.Context) {
	var generic genericRequest
	if c.Request.Method == "GET" {
		generic.Service = c.Query("service")
		generic.Endpoint = c.Query("endpoint")
		generic.Method = "GET"
		generic.Params = make(map[string]string)
		for key, values := range c.Request.URL.Query() {
			if reservedQueryParams[key] || len(values) == 0 {
				continue
			}
			generic.Params[key] = values[0]
		}
	} else {
		if err := c.ShouldBindJSON(&generic); err != nil {
			response.BadRequest(c, "invalid JSON in request body")
			return
		}
	}

	if generic.Service == "" || generic.Endpoint == "" {
		response.BadRequest(c, "service and endpoint are required")
		return
	}

	method := generic.Method
	if method == "" {
		method = c.Request.Method
	}

	headers := make(map[string]string, len(generic.Headers))
	for name, value := range generic.Headers {
		if strings.EqualFold(name, "Authorization") {
			continue
		}
		headers[name] = value
	}

	h.pipeline.Execute(c, generic.Service, generic.Endpoint, func(proxy.Service) (*proxy.Request, error) {
		return &proxy.Request{
			Method:  method,
			Path:    generic.Endpoint,
			Params:  generic.Params,
			Headers: headers,
			Body:    []byte(generic.Body),
		}, nil
	})
}

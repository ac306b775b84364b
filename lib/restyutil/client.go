package restyutil

import (
	"net/http"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/trace"
)

const DefaultUserAgent = "Mozilla/5.0 (compatible; labextract)"

type ClientOptions struct {
	Headers map[string]string
	Timeout time.Duration
	// wraps the transport so requests look like they come from a browser,
	// for sites behind Cloudflare's bot check
	CloudflareBypass bool
	Tracer           trace.Tracer
	Output           InstrumentOutput
}

// NewClient creates an instrumented resty client. Requests identify
// themselves with DefaultUserAgent unless a User-Agent header is given.
func NewClient(opts ClientOptions) *resty.Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", DefaultUserAgent)
	client.SetHeaders(opts.Headers)

	if opts.CloudflareBypass {
		transport := client.GetClient().Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		client.SetTransport(cloudflarebp.AddCloudFlareByPass(transport))
	}

	InstrumentClient(client, opts.Tracer, opts.Output)
	return client
}

// CloseIdle releases the idle connections of the client's transport.
func CloseIdle(client *resty.Client) {
	client.GetClient().CloseIdleConnections()
}

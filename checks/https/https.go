// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package https

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"

	"github.com/choria-io/platcheck/checks/base"
	"github.com/choria-io/platcheck/config"
	"github.com/choria-io/platcheck/generators"
	iu "github.com/choria-io/platcheck/internal/util"
	"github.com/choria-io/platcheck/model"
	"github.com/choria-io/platcheck/property"
)

const (
	TypeName = "https"

	maxRedirects = 10
)

var errTooManyRedirects = fmt.Errorf("stopped after %d redirects", maxRedirects)

// Hop is a response that redirected the client while following a redirect chain
type Hop struct {
	URL    *url.URL
	Status int
}

// Checker verifies that the public endpoint only serves content over https
type Checker struct {
	*base.Base

	cfg      config.HTTPS
	httpURL  *url.URL
	httpsURL *url.URL
	client   *http.Client
	setupErr error
}

// New creates a https enforcement checker, configuration problems are reported as skipped checks by Run
func New(mgr model.Manager) (*Checker, error) {
	b, err := base.New(TypeName, mgr)
	if err != nil {
		return nil, err
	}

	c := &Checker{Base: b, cfg: b.Config.HTTPS}
	c.setupErr = c.setup()

	return c, nil
}

func (c *Checker) TypeName() string { return TypeName }

func (c *Checker) setup() error {
	var err error

	httpURL := c.cfg.HTTPURL
	httpsURL := c.cfg.HTTPSURL
	if c.cfg.Domain != "" {
		if httpURL == "" {
			httpURL = "http://" + c.cfg.Domain
		}
		if httpsURL == "" {
			httpsURL = "https://" + c.cfg.Domain
		}
	}

	if httpURL == "" || httpsURL == "" {
		return fmt.Errorf("%w: no platform domain configured", model.ErrEnvironmentUnavailable)
	}

	c.httpURL, err = url.Parse(httpURL)
	if err != nil {
		return fmt.Errorf("invalid http url: %w", err)
	}

	c.httpsURL, err = url.Parse(httpsURL)
	if err != nil {
		return fmt.Errorf("invalid https url: %w", err)
	}

	c.Log.Debug("Checking HTTPS enforcement", "http", iu.RedactUrlCredentials(httpURL), "https", iu.RedactUrlCredentials(httpsURL))

	tlsc := &tls.Config{MinVersion: tls.VersionTLS12}

	if c.cfg.CAFile != "" {
		pem, err := os.ReadFile(c.cfg.CAFile)
		if err != nil {
			return fmt.Errorf("could not read ca file: %w", err)
		}

		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}

		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificates found in %s", c.cfg.CAFile)
		}

		tlsc.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsc

	timeout := c.cfg.ParsedTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}

	c.client = &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return nil
}

// Run performs the redirect property and the endpoint checks
func (c *Checker) Run(ctx context.Context) ([]*model.CheckResult, error) {
	if c.setupErr != nil {
		for _, check := range []string{"redirect", "certificate", "method_preservation", "explicit_port", "hsts", "redirect_chain"} {
			c.Static(ctx, check, "", func(context.Context) error { return c.setupErr })
		}

		return c.Finish(ctx)
	}

	c.Property("redirect", "plaintext requests redirect to https", prop.ForAll(
		func(t generators.Target) *gopter.PropResult {
			return property.Verdict(c.verifyRedirect(ctx, t))
		},
		generators.RequestTarget(c.cfg.Paths, c.cfg.Queries),
	))

	c.Scenario(ctx, "certificate", c.checkCertificate)
	c.Static(ctx, "method_preservation", "GET and HEAD redirect to https", c.checkMethods)
	c.Static(ctx, "explicit_port", fmt.Sprintf("requests to port %d redirect to https", c.explicitPort()), c.checkExplicitPort)
	c.Scenario(ctx, "hsts", c.checkHSTS)
	c.Scenario(ctx, "redirect_chain", c.checkRedirectChain)

	return c.Finish(ctx)
}

// classifyTransportError distinguishes rejected certificates and redirect loops from endpoints that cannot be reached
func classifyTransportError(err error) error {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownErr  x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, errTooManyRedirects):
		return fmt.Errorf("%w: %w", model.ErrRedirectMissing, err)
	case errors.As(err, &verifyErr), errors.As(err, &unknownErr), errors.As(err, &hostnameErr), errors.As(err, &invalidErr):
		return fmt.Errorf("%w: %w", model.ErrCertificateInvalid, err)
	case isConnectivityError(err):
		return fmt.Errorf("%w: %w", model.ErrEnvironmentUnavailable, err)
	default:
		return err
	}
}

// isConnectivityError determines if err means the endpoint could not be reached or stopped answering
func isConnectivityError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	// url.Error satisfies net.Error itself so only its cause is considered
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}

// limitRedirects follows at most maxRedirects redirects, calling hop for each redirect response
func limitRedirects(hop func(*http.Response)) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errTooManyRedirects
		}

		if hop != nil && req.Response != nil {
			hop(req.Response)
		}

		return nil
	}
}

func (c *Checker) do(ctx context.Context, client *http.Client, method string, u *url.URL) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, classifyTransportError(err)
	}

	return resp, body, nil
}

func (c *Checker) targetURL(t generators.Target) *url.URL {
	u := *c.httpURL
	u.Path = t.Path
	u.RawPath = ""
	u.RawQuery = t.Query
	if len(u.RawQuery) > 0 && u.RawQuery[0] == '?' {
		u.RawQuery = u.RawQuery[1:]
	}

	return &u
}

func (c *Checker) verifyRedirect(ctx context.Context, t generators.Target) error {
	resp, _, err := c.do(ctx, c.client, http.MethodGet, c.targetURL(t))
	if err != nil {
		return err
	}

	return EvaluateRedirect(t, resp.StatusCode, resp.Header.Get("Location"))
}

// redirectsToHTTPS requires u to answer method with a redirect to an https location
func (c *Checker) redirectsToHTTPS(ctx context.Context, method string, u *url.URL) error {
	resp, _, err := c.do(ctx, c.client, method, u)
	if err != nil {
		return err
	}

	if !IsRedirectStatus(resp.StatusCode) {
		return fmt.Errorf("%w: %s %s returned status %d", model.ErrRedirectMissing, method, u, resp.StatusCode)
	}

	loc, err := url.Parse(resp.Header.Get("Location"))
	if err != nil || loc.Scheme != "https" {
		return fmt.Errorf("%w: %s %s redirected to %q", model.ErrRedirectMissing, method, u, resp.Header.Get("Location"))
	}

	return nil
}

func (c *Checker) root() *url.URL {
	return c.targetURL(generators.Target{Path: "/"})
}

func (c *Checker) checkCertificate(ctx context.Context, res *model.CheckResult) *model.CheckResult {
	follow := *c.client
	follow.CheckRedirect = limitRedirects(nil)

	resp, _, err := c.do(ctx, &follow, http.MethodGet, c.httpsURL)
	if err != nil {
		return res.FromError(err, "")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return res.FromError(fmt.Errorf("%w: %s returned status %d", model.ErrPropertyViolation, c.httpsURL, resp.StatusCode), "")
	}

	if resp.TLS == nil || len(resp.TLS.PeerCertificates) == 0 {
		return res.Pass("%s returned status %d", c.httpsURL, resp.StatusCode)
	}

	leaf := resp.TLS.PeerCertificates[0]
	days := int(time.Until(leaf.NotAfter).Hours() / 24)

	return res.Pass("certificate for %s expires %s (%d days)", leaf.Subject.CommonName, leaf.NotAfter.UTC().Format(time.RFC3339), days)
}

func (c *Checker) checkMethods(ctx context.Context) error {
	for _, method := range []string{http.MethodGet, http.MethodHead} {
		err := c.redirectsToHTTPS(ctx, method, c.root())
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *Checker) explicitPort() int {
	if c.cfg.ExplicitPort > 0 {
		return c.cfg.ExplicitPort
	}

	return 80
}

func (c *Checker) checkExplicitPort(ctx context.Context) error {
	u := c.root()
	u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(c.explicitPort()))

	return c.redirectsToHTTPS(ctx, http.MethodGet, u)
}

func (c *Checker) checkHSTS(ctx context.Context, res *model.CheckResult) *model.CheckResult {
	resp, _, err := c.do(ctx, c.client, http.MethodGet, c.httpsURL)
	if err != nil {
		return res.FromError(err, "")
	}

	header := resp.Header.Get("Strict-Transport-Security")
	if header == "" {
		return res.Skip("%s does not send a Strict-Transport-Security header", c.httpsURL)
	}

	age, err := ParseHSTSMaxAge(header)
	if err != nil {
		return res.FromError(err, "")
	}

	return res.Pass("Strict-Transport-Security max-age is %d seconds", age)
}

// FollowRedirects requests u following redirects and records every hop
func (c *Checker) FollowRedirects(ctx context.Context, u *url.URL) (*http.Response, []byte, []Hop, error) {
	var hops []Hop

	follow := *c.client
	follow.CheckRedirect = limitRedirects(func(resp *http.Response) {
		hops = append(hops, Hop{URL: resp.Request.URL, Status: resp.StatusCode})
	})

	resp, body, err := c.do(ctx, &follow, http.MethodGet, u)

	return resp, body, hops, err
}

func (c *Checker) checkRedirectChain(ctx context.Context, res *model.CheckResult) *model.CheckResult {
	resp, body, hops, err := c.FollowRedirects(ctx, c.root())
	if err != nil {
		return res.FromError(err, "")
	}

	final := resp.Request.URL

	switch {
	case final.Scheme != "https":
		err = fmt.Errorf("%w: redirects ended at %s", model.ErrRedirectMissing, final)
	case resp.StatusCode != http.StatusOK:
		err = fmt.Errorf("%w: %s returned status %d", model.ErrPropertyViolation, final, resp.StatusCode)
	case len(body) == 0:
		err = fmt.Errorf("%w: %s returned an empty body", model.ErrPropertyViolation, final)
	case len(hops) == 0:
		err = fmt.Errorf("%w: no redirect occurred", model.ErrRedirectMissing)
	case hops[0].URL.Scheme != "http" || !IsRedirectStatus(hops[0].Status):
		err = fmt.Errorf("%w: first hop was %s with status %d", model.ErrRedirectMissing, hops[0].URL, hops[0].Status)
	}

	if err != nil {
		return res.FromError(err, "")
	}

	return res.Pass("%s reached %s in %d redirects", c.root(), final, len(hops))
}

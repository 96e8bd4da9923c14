// Package recaptcha scores submissions against the reCAPTCHA v3
// siteverify API. The score is advisory: any failure to obtain one
// degrades to a neutral value instead of surfacing an error.
package recaptcha

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NeutralScore is returned when the oracle is unavailable or not
// configured. It sits above typical spam thresholds so a broken oracle
// never flags legitimate traffic.
const NeutralScore = 0.5

const defaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// Verifier is the scoring contract the spam gate consumes.
type Verifier interface {
	Verify(ctx context.Context, token string) float64
}

type Client struct {
	secretKey  string
	endpoint   string
	httpClient *http.Client
}

func New(secretKey string) *Client {
	return &Client{
		secretKey: secretKey,
		endpoint:  defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithEndpoint overrides the siteverify URL, used by tests.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score"`
	Action     string   `json:"action"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify returns the oracle's confidence that the submission is
// legitimate, in [0,1]. Lower is more bot-like. A single failed call
// returns NeutralScore; there is no retry.
func (c *Client) Verify(ctx context.Context, token string) float64 {
	if c.secretKey == "" {
		log.Println("RECAPTCHA_SECRET_KEY not configured, returning neutral score")
		return NeutralScore
	}

	form := url.Values{}
	form.Set("secret", c.secretKey)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		log.Printf("reCAPTCHA request error: %v", err)
		return NeutralScore
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("reCAPTCHA verification error: %v", err)
		return NeutralScore
	}
	defer resp.Body.Close()

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		log.Printf("reCAPTCHA response decode error: %v", err)
		return NeutralScore
	}

	if !body.Success || body.Score == nil {
		log.Printf("reCAPTCHA verification failed: %v", body.ErrorCodes)
		return NeutralScore
	}

	return *body.Score
}

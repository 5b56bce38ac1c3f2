package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const RecaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

type Recaptcha struct {
	Secret    string
	VerifyURL string

	client *http.Client
}

func NewRecaptcha(secret string, timeout time.Duration) *Recaptcha {
	return &Recaptcha{
		Secret:    secret,
		VerifyURL: RecaptchaVerifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

type siteVerify struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify fails with ErrVerificationFailed when the response is rejected,
// and with any other error when the check could not be made.
func (r *Recaptcha) Verify(ctx context.Context, response, remoteIP string) error {
	if response == "" {
		return errors.Wrap(ErrVerificationFailed, "no response")
	}

	form := url.Values{
		"secret":   {r.Secret},
		"response": {response},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "siteverify")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("siteverify: %s", resp.Status)
	}

	var result siteVerify
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "decode siteverify")
	}
	if !result.Success {
		return errors.Wrapf(ErrVerificationFailed, "%v", result.ErrorCodes)
	}
	return nil
}

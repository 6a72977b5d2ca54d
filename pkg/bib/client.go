// Package bib fetches bibliographic records for volumes whose SIP carries
// no MARC metadata of its own. The record service is an external
// collaborator; this package only pins its contract.
package bib

import (
	"context"
	"fmt"
	"io"
	"net/http"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RecordFetcher retrieves the MARCXML record for one object.
type RecordFetcher interface {
	MARCXML(ctx context.Context, namespace, objid string) ([]byte, error)
}

type httpFetcher struct {
	base   string
	client *retryablehttp.Client
}

// NewRecordFetcher builds a fetcher over the bibliographic record service
// rooted at base. Transient failures retry with backoff.
func NewRecordFetcher(base string) RecordFetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 4
	client.Logger = nil
	return &httpFetcher{base: base, client: client}
}

func (f *httpFetcher) MARCXML(ctx context.Context, namespace, objid string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s.marcxml", f.base, namespace, objid)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build record request")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch record for %s.%s", namespace, objid)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Warn("Could not close record response body.")
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("record service returned %d for %s.%s", resp.StatusCode, namespace, objid)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "could not read record response")
	}
	return data, nil
}

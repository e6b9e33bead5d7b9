package p2p

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// seed is a remote list of static peers, one endpoint per line. Empty lines and
// lines starting with # are ignored.
type seed struct {
	url     string
	timeout time.Duration

	logger *log.Entry
}

func newSeed(url string, timeout time.Duration) *seed {
	s := new(seed)
	s.url = url
	s.timeout = timeout
	s.logger = packageLogger.WithFields(log.Fields{"subpack": "seed", "url": url})
	return s
}

func (s *seed) retrieve(ctx context.Context) ([]Endpoint, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "invalid seed url")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "unable to retrieve seed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("seed responded with %s", resp.Status)
	}

	var eps []Endpoint
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ep, err := ParseEndpoint(line)
		if err != nil {
			s.logger.WithError(err).Errorf("Bad peer [%s]", line)
			continue
		}
		eps = append(eps, ep)
	}
	if err := scanner.Err(); err != nil {
		return eps, errors.Wrap(err, "unable to read seed")
	}
	return eps, nil
}

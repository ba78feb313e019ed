package engine

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ekuiter/variED-NG/contract"
)

// remoteClient bounds lazy remote loads so a stalled origin cannot hold
// up message handling for long.
var remoteClient = &http.Client{Timeout: 10 * time.Second}

// FromSource loads a model from inline JSON source text.
func FromSource(source string) contract.EngineLoader {
	return func() (contract.Engine, error) {
		return Load(source)
	}
}

// FromURL fetches the model source on first session access. Use with
// caution: the URL is fetched as-is, which is acceptable only in
// trusted contexts.
func FromURL(url string) contract.EngineLoader {
	return func() (contract.Engine, error) {
		response, err := remoteClient.Get(url)
		if err != nil {
			return nil, fmt.Errorf("fetching remote artifact %s: %w", url, err)
		}
		defer response.Body.Close()
		if response.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching remote artifact %s: %s", url, response.Status)
		}
		source, err := io.ReadAll(response.Body)
		if err != nil {
			return nil, fmt.Errorf("fetching remote artifact %s: %w", url, err)
		}
		return Load(string(source))
	}
}

// Prebuilt wraps an engine instance that already exists.
func Prebuilt(e contract.Engine) contract.EngineLoader {
	return func() (contract.Engine, error) {
		return e, nil
	}
}

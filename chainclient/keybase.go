package chainclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

type keybaseProfile struct {
	Username   string
	PictureURL string
}

type keybaseLookupResponse struct {
	Status struct {
		Code int `json:"code"`
	} `json:"status"`
	Them []struct {
		Basics struct {
			Username string `json:"username"`
		} `json:"basics"`
		Pictures struct {
			Primary struct {
				URL string `json:"url"`
			} `json:"primary"`
		} `json:"pictures"`
	} `json:"them"`
}

// GetKeybaseProfile resolves a validator identity (a Keybase key suffix) to
// a username and avatar URL. Hits are memoized per process; failures and
// unknown identities report empty values and are not cached.
func (c *Client) GetKeybaseProfile(ctx context.Context, identity string) (username, pictureURL string) {
	if identity == "" {
		return "", ""
	}
	if cached, ok := c.profiles.Get(identity); ok {
		p := cached.(keybaseProfile)
		return p.Username, p.PictureURL
	}

	v := url.Values{}
	v.Set("key_suffix", identity)
	v.Set("fields", "basics,pictures")
	lookupURL := c.keybaseHost + "/_/api/1.0/user/lookup.json?" + v.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", ""
	}
	r, err := c.hc.Do(req)
	if err != nil {
		log.WithError(err).WithField("identity", identity).Warn("Keybase lookup failed")
		return "", ""
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.WithError(err).Debug("Could not close response body")
		}
	}()
	if r.StatusCode != http.StatusOK {
		log.WithField("identity", identity).Warnf("Keybase lookup returned status %d", r.StatusCode)
		return "", ""
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.WithError(err).WithField("identity", identity).Warn("Could not read Keybase response")
		return "", ""
	}
	resp := &keybaseLookupResponse{}
	if err := json.Unmarshal(body, resp); err != nil {
		log.WithError(err).WithField("identity", identity).Warn("Could not parse Keybase response")
		return "", ""
	}
	if resp.Status.Code != 0 || len(resp.Them) == 0 {
		return "", ""
	}
	username = resp.Them[0].Basics.Username
	if username == "" {
		return "", ""
	}
	pictureURL = resp.Them[0].Pictures.Primary.URL
	c.profiles.Add(identity, keybaseProfile{Username: username, PictureURL: pictureURL})
	return username, pictureURL
}

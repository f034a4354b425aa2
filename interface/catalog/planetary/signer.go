package planetary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/airbusgeo/stac-quickvrt/service"
	"github.com/airbusgeo/stac-quickvrt/service/log"
)

const (
	// SASTokenURL is the root of the token endpoint: SASTokenURL/{account}/{container}
	SASTokenURL = "https://planetarycomputer.microsoft.com/api/sas/v1/token"
	// SubscriptionKeyEnv is the environment variable of the optional subscription key
	SubscriptionKeyEnv = "PC_SDK_SUBSCRIPTION_KEY"

	blobDomain = ".blob.core.windows.net"
	// tokens expiring within expiryMargin are renewed
	expiryMargin = time.Minute
)

type token struct {
	Expiry string `json:"msft:expiry"`
	Token  string `json:"token"`
}

type cachedToken struct {
	token  string
	expiry time.Time
}

// Signer implements catalog.AssetSigner, appending a SAS token to the Azure blob hrefs
type Signer struct {
	TokenURL        string
	SubscriptionKey string
	Client          *http.Client

	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

// NewSigner creates a Signer using the subscription key of the environment, if any
func NewSigner(client *http.Client) *Signer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Signer{
		TokenURL:        SASTokenURL,
		SubscriptionKey: os.Getenv(SubscriptionKeyEnv),
		Client:          client,
	}
}

// Sign implements catalog.AssetSigner.
// Hrefs that are not Azure blobs or that are already signed are returned unchanged.
func (s *Signer) Sign(ctx context.Context, href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("Sign: %w", err)
	}
	if !strings.HasSuffix(u.Hostname(), blobDomain) {
		return href, nil
	}
	if u.Query().Has("sig") {
		return href, nil
	}
	account := strings.TrimSuffix(u.Hostname(), blobDomain)
	container, _, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if container == "" {
		return "", fmt.Errorf("Sign: no container in %s", u.Redacted())
	}

	tok, err := s.token(ctx, account, container)
	if err != nil {
		return "", fmt.Errorf("Sign.%w", err)
	}
	if u.RawQuery != "" {
		u.RawQuery += "&" + tok
	} else {
		u.RawQuery = tok
	}
	return u.String(), nil
}

// token returns the SAS token of the container, from the cache if it is still valid
func (s *Signer) token(ctx context.Context, account, container string) (string, error) {
	key := account + "/" + container
	now := time.Now
	if s.now != nil {
		now = s.now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[key]; ok && now().Add(expiryMargin).Before(t.expiry) {
		return t.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s/%s", s.TokenURL, account, container), nil)
	if err != nil {
		return "", fmt.Errorf("token.NewRequest: %w", err)
	}
	if s.SubscriptionKey != "" {
		req.Header.Add("Ocp-Apim-Subscription-Key", s.SubscriptionKey)
	}
	var t token
	if err := service.GetJSON(s.Client, req, &t); err != nil {
		return "", fmt.Errorf("token(%s): %w", key, err)
	}
	if t.Token == "" {
		return "", fmt.Errorf("token(%s): empty token", key)
	}
	expiry, err := dateparse.ParseAny(t.Expiry)
	if err != nil {
		// unusable expiry: the token is used once and not cached
		log.Logger(ctx).Warn("unable to parse the token expiry", zap.String("expiry", t.Expiry), zap.Error(err))
		return t.Token, nil
	}
	if s.tokens == nil {
		s.tokens = map[string]cachedToken{}
	}
	s.tokens[key] = cachedToken{token: t.Token, expiry: expiry}
	log.Logger(ctx).Debug("new SAS token", zap.String("container", key), zap.Time("expiry", expiry))
	return t.Token, nil
}

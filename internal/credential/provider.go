package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

const (
	// ProfileScope はプロフィール読み取り専用のスコープ。
	ProfileScope = "https://www.googleapis.com/auth/plus.me"

	defaultTokenURL = "https://oauth2.googleapis.com/token"
)

// ServiceAccountConfig はサービスアカウント認証情報の設定。
type ServiceAccountConfig struct {
	// Dir は認証情報ファイルを格納する設定ディレクトリ。
	Dir string

	// テスト用にオーバーライド可能なURL
	TokenURL string
}

// ServiceAccount はJWTアサーションによる認証情報。
// Credentialsインターフェースを実装する。
// トークンエンドポイントにアサーションを拒否されると無効になり、以後Validはfalseを返す。
type ServiceAccount struct {
	mu       sync.Mutex
	record   *Record
	revoked  bool
	store    *Store
	tokenURL string
	logger   *slog.Logger
}

// clientSecrets はclient_secrets.jsonの構造。
type clientSecrets struct {
	Web struct {
		ClientEmail string `json:"client_email"`
	} `json:"web"`
}

// LoadServiceAccount は設定ディレクトリから認証情報を読み込む。
// 永続化されたレコードがない、または無効な場合は秘密鍵と
// client_secrets.jsonからレコードを生成し、保存する。
func LoadServiceAccount(cfg ServiceAccountConfig, logger *slog.Logger) (*ServiceAccount, error) {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}

	store := NewStore(cfg.Dir)
	rec, err := store.Load()
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		logger.Warn("failed to load credential record",
			slog.String("path", store.Path()),
			slog.String("error", err.Error()),
		)
	}

	if !rec.Valid() {
		logger.Warn("invalid credentials, bootstrapping from private key",
			slog.String("dir", cfg.Dir),
		)
		rec, err = bootstrap(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to bootstrap credentials: %w", err)
		}
		if err := store.Save(rec); err != nil {
			return nil, fmt.Errorf("failed to save credentials: %w", err)
		}
	}

	return &ServiceAccount{
		record:   rec,
		store:    store,
		tokenURL: cfg.TokenURL,
		logger:   logger,
	}, nil
}

// bootstrap は秘密鍵とクライアントメタデータから認証情報レコードを生成する。
func bootstrap(dir string) (*Record, error) {
	key, err := os.ReadFile(filepath.Join(dir, PrivateKeyFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	meta, err := os.ReadFile(filepath.Join(dir, ClientSecretsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets: %w", err)
	}

	var secrets clientSecrets
	if err := json.Unmarshal(meta, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}

	rec := &Record{
		ClientEmail: secrets.Web.ClientEmail,
		PrivateKey:  string(key),
		Scopes:      []string{ProfileScope},
	}
	if !rec.Valid() {
		return nil, errors.New("bootstrapped credential record is invalid")
	}
	return rec, nil
}

// Valid は認証情報が有効かを返す。
func (a *ServiceAccount) Valid() bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.revoked && a.record.Valid()
}

// Client は認可済みのHTTPクライアントを生成する。
// 取得したトークンはレコードに保存され、次回起動時に再利用される。
func (a *ServiceAccount) Client(ctx context.Context) (*http.Client, error) {
	a.mu.Lock()
	rec := *a.record
	a.mu.Unlock()

	conf := &jwt.Config{
		Email:      rec.ClientEmail,
		PrivateKey: []byte(rec.PrivateKey),
		Scopes:     rec.Scopes,
		TokenURL:   a.tokenURL,
	}

	src := oauth2.ReuseTokenSource(rec.Token, &persistingTokenSource{
		base:    conf.TokenSource(ctx),
		account: a,
	})
	return oauth2.NewClient(ctx, src), nil
}

// saveToken は新しいトークンをレコードに反映し、保存する。
func (a *ServiceAccount) saveToken(tok *oauth2.Token) {
	a.mu.Lock()
	rec := *a.record
	rec.Token = tok
	a.record = &rec
	a.mu.Unlock()

	if err := a.store.Save(&rec); err != nil {
		a.logger.Warn("failed to persist access token",
			slog.String("path", a.store.Path()),
			slog.String("error", err.Error()),
		)
	}
}

// revoke は認証情報を無効にする。
func (a *ServiceAccount) revoke(err error) {
	a.mu.Lock()
	a.revoked = true
	email := a.record.ClientEmail
	a.mu.Unlock()

	a.logger.Error("token endpoint rejected credentials",
		slog.String("client_email", email),
		slog.String("error", err.Error()),
	)
}

// persistingTokenSource は取得したトークンを認証情報レコードに書き戻す。
type persistingTokenSource struct {
	base    oauth2.TokenSource
	account *ServiceAccount
}

// Token はoauth2.TokenSourceを実装する。
// トークンエンドポイントがエラー応答を返した場合は認証情報を無効にし、
// ErrAuthorizationでラップして返す。到達失敗などはそのまま返す。
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if !errors.As(err, &retrieveErr) {
			return nil, err
		}
		s.account.revoke(err)
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}
	s.account.saveToken(tok)
	return tok, nil
}

// compile-time interface check
var _ Credentials = (*ServiceAccount)(nil)

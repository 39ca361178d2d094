// Package credential はリモートAPI呼び出し用の認証情報を管理する。
//
// サービスアカウントの認証情報レコードを設定ディレクトリに永続化し、
// JWTアサーションで取得したアクセストークンで認可済みHTTPクライアントを生成する。
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2"
)

const (
	// RecordFileName は永続化された認証情報レコードのファイル名。
	RecordFileName = "credentials.json"
	// PrivateKeyFileName はブートストラップ用の秘密鍵（PEM）のファイル名。
	PrivateKeyFileName = "privatekey.pem"
	// ClientSecretsFileName はクライアントメタデータのファイル名。
	ClientSecretsFileName = "client_secrets.json"
)

// ErrRecordNotFound は認証情報レコードが存在しない場合のエラー。
var ErrRecordNotFound = errors.New("credential record not found")

var validate = validator.New()

// Record は永続化されるサービスアカウントの認証情報。
type Record struct {
	ClientEmail string        `json:"client_email" validate:"required,email"`
	PrivateKey  string        `json:"private_key" validate:"required"`
	Scopes      []string      `json:"scopes" validate:"required,min=1"`
	Token       *oauth2.Token `json:"token,omitempty"`
}

// Valid はレコードが認可に使用できるかを返す。
func (r *Record) Valid() bool {
	if r == nil {
		return false
	}
	return validate.Struct(r) == nil
}

// Store は認証情報レコードをファイルに保存する。
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore は指定ディレクトリのStoreを生成する。
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, RecordFileName)}
}

// Path はレコードファイルのパスを返す。
func (s *Store) Path() string {
	return s.path
}

// Load はレコードを読み込む。ファイルがない場合はErrRecordNotFoundを返す。
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read credential record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse credential record: %w", err)
	}
	return &rec, nil
}

// Save はレコードを書き込む。
func (s *Store) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential record: %w", err)
	}

	return os.WriteFile(s.path, data, 0o600)
}

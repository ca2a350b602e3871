// Package config はファンボード全体の設定を管理する。
// 設定はYAMLファイルと環境変数（FANBOARD_プレフィックス）から読み込み、
// 生成した構造体を各コンポーネントのコンストラクタに注入する。
// グローバル設定への暗黙的な参照は行わない。
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config はアプリケーション全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `mapstructure:"port"`
	// DBPath はSQLiteデータベースファイルのパス。
	DBPath string `mapstructure:"db_path"`
	// JWTSecret はJWTトークンの署名鍵。
	JWTSecret string `mapstructure:"jwt_secret"`
	// SiteURL はメール内のリンク生成に使用するサイトのベースURL。
	SiteURL string `mapstructure:"site_url"`
	// AllowedOrigins はCORSで許可するオリジンの一覧。
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// Mail はメール送信の設定。
	Mail MailConfig `mapstructure:"mail"`
	// Digest は週次ダイジェストの設定。
	Digest DigestConfig `mapstructure:"digest"`
}

// MailConfig はSMTPメール送信の設定。
type MailConfig struct {
	// Host はSMTPサーバーのホスト名。
	Host string `mapstructure:"host"`
	// Port はSMTPサーバーのポート番号。
	Port int `mapstructure:"port"`
	// Username はSMTP認証のユーザー名。空の場合は認証なしで接続する。
	Username string `mapstructure:"username"`
	// Password はSMTP認証のパスワード。
	Password string `mapstructure:"password"`
	// From は送信元メールアドレス。
	From string `mapstructure:"from"`
}

// DigestConfig は週次ダイジェスト配信の設定。
type DigestConfig struct {
	// Cron は配信スケジュールのcron式。デフォルトは毎週月曜9時。
	Cron string `mapstructure:"cron"`
	// Timezone はcron式を評価するタイムゾーン。
	Timezone string `mapstructure:"timezone"`
}

// defaultConfig は開発環境向けのデフォルト設定を返す。
func defaultConfig() *Config {
	return &Config{
		Port:      "8080",
		DBPath:    "/data/fanboard.db",
		JWTSecret: "dev-secret-key",
		SiteURL:   "http://localhost:8080",
		AllowedOrigins: []string{
			"http://localhost:3000",
		},
		Mail: MailConfig{
			Host: "localhost",
			Port: 25,
			From: "noreply@fanboard.example",
		},
		Digest: DigestConfig{
			Cron:     "0 9 * * 1",
			Timezone: "Europe/Moscow",
		},
	}
}

// Load は設定をYAMLファイルと環境変数から読み込む。
// pathが空、またはファイルが存在しない場合はデフォルト値と環境変数のみを使用する。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FANBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("port", def.Port)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("jwt_secret", def.JWTSecret)
	v.SetDefault("site_url", def.SiteURL)
	v.SetDefault("allowed_origins", def.AllowedOrigins)
	v.SetDefault("mail.host", def.Mail.Host)
	v.SetDefault("mail.port", def.Mail.Port)
	v.SetDefault("mail.username", def.Mail.Username)
	v.SetDefault("mail.password", def.Mail.Password)
	v.SetDefault("mail.from", def.Mail.From)
	v.SetDefault("digest.cron", def.Digest.Cron)
	v.SetDefault("digest.timezone", def.Digest.Timezone)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			// ファイルが存在しない場合はデフォルト値と環境変数で続行する
			if _, ok := err.(*os.PathError); !ok {
				if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
					return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("設定の解析に失敗: %w", err)
	}
	return cfg, nil
}

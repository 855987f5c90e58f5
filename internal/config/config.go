package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SSMParameterGetter Parameter Storeからパラメータを取得するインターフェース
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// イベントAPI設定
	EventAPIBaseURL string `yaml:"event_api_base_url"`
	EventAPIToken   string `yaml:"event_api_token"`
	UserID          string `yaml:"user_id"`

	// Google Calendar設定（ミラーカレンダー、任意）
	GoogleCredentials string `yaml:"google_credentials"`
	CalendarID        string `yaml:"calendar_id"`

	// LINE API設定
	LineChannelAccessToken string `yaml:"line_channel_access_token"`
	LineUserID             string `yaml:"line_user_id"`

	// その他設定
	LogLevel       string        `yaml:"log_level"`
	Timezone       string        `yaml:"timezone"`
	RefreshCron    string        `yaml:"refresh_cron"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter
}

// デフォルト値
const (
	defaultCalendarID     = "primary"
	defaultLogLevel       = "INFO"
	defaultTimezone       = "Asia/Tokyo"
	defaultRefreshCron    = "*/5 * * * *"
	defaultRequestTimeout = 15 * time.Second
	defaultParamPrefix    = "/event-feed-notifier"
)

// Load 環境に応じて設定を読み込み
func Load() (*Config, error) {
	// AWS Lambda環境かどうか判定
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return loadAWSConfig()
	}
	return loadLocalConfig()
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf(".envファイルの読み込みに失敗しました: %v", err)
	}

	cfg := defaults()

	// 設定ファイルがあれば読み込み、環境変数で上書きする
	if path := getEnvOrDefault("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig() (*Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %v", err)
	}

	cfg := defaults()
	cfg.ssmClient = ssm.NewFromConfig(awsCfg)

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(); err != nil {
		return nil, fmt.Errorf("parameter Storeからの設定読み込みに失敗しました: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		CalendarID:     defaultCalendarID,
		LogLevel:       defaultLogLevel,
		Timezone:       defaultTimezone,
		RefreshCron:    defaultRefreshCron,
		RequestTimeout: defaultRequestTimeout,
	}
}

// loadFile YAML形式の設定ファイルを読み込み
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイル %s の読み込みに失敗しました: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイル %s の解析に失敗しました: %w", path, err)
	}
	return nil
}

// applyEnv 設定済みの環境変数で上書き
func (c *Config) applyEnv() error {
	c.EventAPIBaseURL = getEnvOrDefault("EVENT_API_BASE_URL", c.EventAPIBaseURL)
	c.EventAPIToken = getEnvOrDefault("EVENT_API_TOKEN", c.EventAPIToken)
	c.UserID = getEnvOrDefault("USER_ID", c.UserID)
	c.GoogleCredentials = getEnvOrDefault("GOOGLE_CREDENTIALS", c.GoogleCredentials)
	c.CalendarID = getEnvOrDefault("CALENDAR_ID", c.CalendarID)
	c.LineChannelAccessToken = getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", c.LineChannelAccessToken)
	c.LineUserID = getEnvOrDefault("LINE_USER_ID", c.LineUserID)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.Timezone = getEnvOrDefault("TIMEZONE", c.Timezone)
	c.RefreshCron = getEnvOrDefault("REFRESH_CRON", c.RefreshCron)

	if v := getEnvOrDefault("REQUEST_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUTの形式が不正です: %v", err)
		}
		c.RequestTimeout = d
	}

	return nil
}

// Validate 必須設定項目の確認
func (c *Config) Validate() error {
	if c.EventAPIBaseURL == "" {
		return fmt.Errorf("EVENT_API_BASE_URL環境変数が設定されていません")
	}
	if c.UserID == "" {
		return fmt.Errorf("USER_ID環境変数が設定されていません")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUTは正の値を指定してください")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONEが不正です: %v", err)
	}
	if c.HasMirror() {
		if _, err := c.GetGoogleCredentialsJSON(); err != nil {
			return fmt.Errorf("GOOGLE_CREDENTIALSが不正です: %w", err)
		}
	}
	return nil
}

// Location 設定されたタイムゾーン
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// HasMirror ミラーカレンダーが設定されているか
func (c *Config) HasMirror() bool {
	return c.GoogleCredentials != ""
}

// HasLINE LINE通知が設定されているか
func (c *Config) HasLINE() bool {
	return c.LineChannelAccessToken != "" && c.LineUserID != ""
}

// loadFromParameterStore Parameter Storeから機密情報を読み込み
func (c *Config) loadFromParameterStore() error {
	ctx := context.TODO()

	// イベントAPIトークンを取得
	tokenParam := getEnvOrDefault("SSM_EVENT_API_TOKEN_PARAM", defaultParamPrefix+"/event-api-token")
	token, err := c.getParameter(ctx, tokenParam, true)
	if err != nil {
		return fmt.Errorf("イベントAPIトークンの取得に失敗しました: %v", err)
	}
	c.EventAPIToken = token

	// LINE Channel Access Tokenを取得
	lineTokenParam := getEnvOrDefault("SSM_LINE_TOKEN_PARAM", defaultParamPrefix+"/line-channel-access-token")
	lineToken, err := c.getParameter(ctx, lineTokenParam, true)
	if err != nil {
		return fmt.Errorf("LINE Channel Access Tokenの取得に失敗しました: %v", err)
	}
	c.LineChannelAccessToken = lineToken

	// LINE User IDを取得
	lineUserParam := getEnvOrDefault("SSM_LINE_USER_ID_PARAM", defaultParamPrefix+"/line-user-id")
	lineUser, err := c.getParameter(ctx, lineUserParam, true)
	if err != nil {
		return fmt.Errorf("LINE User IDの取得に失敗しました: %v", err)
	}
	c.LineUserID = lineUser

	// Google認証情報はミラーカレンダーを使う場合のみ
	if googleCredsParam := getEnvOrDefault("SSM_GOOGLE_CREDS_PARAM", ""); googleCredsParam != "" {
		googleCreds, err := c.getParameter(ctx, googleCredsParam, true)
		if err != nil {
			return fmt.Errorf("google認証情報の取得に失敗しました: %v", err)
		}
		c.GoogleCredentials = googleCreds
	}

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %v", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil || *result.Parameter.Value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return *result.Parameter.Value, nil
}

// GetGoogleCredentialsJSON Google認証情報をJSONとして解析
func (c *Config) GetGoogleCredentialsJSON() (map[string]interface{}, error) {
	var credentials map[string]interface{}
	if err := json.Unmarshal([]byte(c.GoogleCredentials), &credentials); err != nil {
		return nil, fmt.Errorf("google認証情報のJSON解析に失敗しました: %v", err)
	}
	return credentials, nil
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

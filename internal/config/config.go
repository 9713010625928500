package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/trimooo/SecurePasskey/internal/utils"
)

// Config holds all application configuration, including secrets, flags, etc.
type Config struct {
	AppName                string
	AppPort                string
	AppUrl                 string
	DBUrl                  string
	DBEncryptionKey        []byte
	RPID                   string
	RPName                 string
	ExpectedOrigin         string
	StrictCeremonyChecks   bool
	ChallengeTTL           time.Duration
	CeremonyTimeout        time.Duration
	SweepInterval          time.Duration
	TokenExpiry            time.Duration
	RefreshTokenExpiry     time.Duration
	VerificationCodeLength int
	VerificationCodeExpiry time.Duration
	RecoveryCodeCount      int
	TOTPIssuer             string
	TwilioAccountSID       string
	TwilioAuthToken        string
	SendGridAPIKey         string
	RSAPrivateKey          *rsa.PrivateKey
	RSAPublicKey           *rsa.PublicKey

	// Static flags fetched once from LaunchDarkly, with env fallbacks
	// when no LD_SDK_KEY is configured.
	LDFlag_SendgridFromEmail   string
	LDFlag_TwilioFromPhone     string
	LDFlag_SendgridSandboxMode bool
	LDFlag_ShortChallengeTTL   bool
	LDFlag_CORSHighSecurity    bool
}

// Constants for time-based configuration defaults.
const (
	DefaultChallengeTTL           = 5 * time.Minute
	TestShortChallengeTTL         = 3 * time.Second
	DefaultCeremonyTimeout        = 60 * time.Second
	DefaultSweepInterval          = 1 * time.Minute
	DefaultTokenExpiry            = 10 * time.Minute
	DefaultRefreshTokenExpiry     = 7 * 24 * time.Hour
	VerificationCodeLength        = 6
	DefaultVerificationCodeExpiry = 10 * time.Minute
	RecoveryCodeCount             = 10
	LDConnectionTimeout           = 5 * time.Second
)

// LoadConfig reads environment variables, sets up LaunchDarkly if an SDK
// key is present, and returns a *Config.
func LoadConfig() *Config {
	//----------------------------------------------------------------------
	// Load required environment variables.
	//----------------------------------------------------------------------
	appName := os.Getenv("APP_NAME")
	if appName == "" {
		appName = "securepasskey"
	}
	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	appUrl := os.Getenv("APP_URL")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL env var is missing")
	}
	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	rpID := os.Getenv("RP_ID")
	if rpID == "" {
		utils.Logger.Fatal("RP_ID env var is missing")
	}
	rpName := os.Getenv("RP_NAME")
	if rpName == "" {
		rpName = appName
	}
	expectedOrigin := os.Getenv("EXPECTED_ORIGIN")
	if expectedOrigin == "" {
		utils.Logger.Fatal("EXPECTED_ORIGIN env var is missing")
	}

	utils.Logger.Debugf("App can be accessed at: %s", appUrl)

	//----------------------------------------------------------------------
	// Parse RSA keys for JWT signing.
	//----------------------------------------------------------------------
	privateKeyBase64 := os.Getenv("RSA_PRIVATE_KEY_BASE64")
	if privateKeyBase64 == "" {
		utils.Logger.Fatal("RSA_PRIVATE_KEY_BASE64 env var is missing")
	}
	privateKeyPEM, err := base64.StdEncoding.DecodeString(privateKeyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode base64 private key")
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA private key")
	}

	publicKeyBase64 := os.Getenv("RSA_PUBLIC_KEY_BASE64")
	if publicKeyBase64 == "" {
		utils.Logger.Fatal("RSA_PUBLIC_KEY_BASE64 env var is missing")
	}
	publicKeyPEM, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode base64 public key")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	//----------------------------------------------------------------------
	// Vault encryption key (AES-256).
	//----------------------------------------------------------------------
	dbEncryptionKeyBase64 := os.Getenv("DB_ENCRYPTION_KEY_BASE64")
	if dbEncryptionKeyBase64 == "" {
		utils.Logger.Fatal("DB_ENCRYPTION_KEY_BASE64 env var is missing")
	}
	decodedKey, err := base64.StdEncoding.DecodeString(dbEncryptionKeyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode DB_ENCRYPTION_KEY_BASE64 from base64")
	}
	if len(decodedKey) != 32 {
		utils.Logger.Fatal("DBEncryptionKey must be 32 bytes for AES-256 encryption")
	}

	//----------------------------------------------------------------------
	// Delivery provider credentials. Required so that email/SMS MFA can
	// actually send codes; sandbox flags below control real delivery.
	//----------------------------------------------------------------------
	twilioAccountSID := os.Getenv("TWILIO_ACCOUNT_SID")
	if twilioAccountSID == "" {
		utils.Logger.Fatal("TWILIO_ACCOUNT_SID env var is missing")
	}
	twilioAuthToken := os.Getenv("TWILIO_AUTH_TOKEN")
	if twilioAuthToken == "" {
		utils.Logger.Fatal("TWILIO_AUTH_TOKEN env var is missing")
	}
	sendGridAPIKey := os.Getenv("SENDGRID_API_KEY")
	if sendGridAPIKey == "" {
		utils.Logger.Fatal("SENDGRID_API_KEY env var is missing")
	}

	//----------------------------------------------------------------------
	// Ceremony policy. Strict checks are the default; set
	// CEREMONY_POLICY=lenient to downgrade origin/UV/counter failures
	// to warnings.
	//----------------------------------------------------------------------
	strictChecks := os.Getenv("CEREMONY_POLICY") != "lenient"

	challengeTTL := DefaultChallengeTTL
	verificationCodeExpiry := DefaultVerificationCodeExpiry

	//----------------------------------------------------------------------
	// Fetch the static flags from LaunchDarkly when an SDK key is set;
	// otherwise fall back to env vars.
	//----------------------------------------------------------------------
	sendgridFromEmail := os.Getenv("SENDGRID_FROM_EMAIL")
	twilioFromPhone := os.Getenv("TWILIO_FROM_PHONE")
	sendgridSandboxMode := os.Getenv("SENDGRID_SANDBOX_MODE") == "true"
	shortChallengeTTL := false
	corsHighSecurity := os.Getenv("CORS_HIGH_SECURITY") == "true"

	if ldSDKKey := os.Getenv("LD_SDK_KEY"); ldSDKKey != "" {
		ldClient, err := ld.MakeClient(ldSDKKey, LDConnectionTimeout)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
		}
		if !ldClient.Initialized() {
			ldClient.Close()
			utils.Logger.Fatal("LaunchDarkly client failed to initialize")
		}
		defer ldClient.Close()

		context := ldcontext.NewWithKind("service", appName)

		sendgridFromEmail, err = ldClient.StringVariation("sendgrid_from_email", context, sendgridFromEmail)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_from_email flag")
		}

		twilioFromPhone, err = ldClient.StringVariation("twilio_from_phone", context, twilioFromPhone)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Error retrieving twilio_from_phone flag")
		}
		utils.Logger.Debugf("twilio_from_phone flag: %s", twilioFromPhone)

		sendgridSandboxMode, err = ldClient.BoolVariation("sendgrid_sandbox_mode", context, sendgridSandboxMode)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_sandbox_mode flag")
		}
		utils.Logger.Debugf("sendgrid_sandbox_mode flag: %t", sendgridSandboxMode)

		shortChallengeTTL, err = ldClient.BoolVariation("short_challenge_ttl", context, false)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Error retrieving short_challenge_ttl flag")
		}
		utils.Logger.Debugf("short_challenge_ttl flag: %t", shortChallengeTTL)

		corsHighSecurity, err = ldClient.BoolVariation("cors_high_security", context, corsHighSecurity)
		if err != nil {
			utils.Logger.WithError(err).Fatal("Error retrieving cors_high_security flag")
		}
		utils.Logger.Debugf("cors_high_security flag: %t", corsHighSecurity)
	}

	if sendgridFromEmail == "" {
		utils.Logger.Fatal("sendgrid_from_email is not configured (flag or SENDGRID_FROM_EMAIL)")
	}
	if twilioFromPhone == "" {
		utils.Logger.Fatal("twilio_from_phone is not configured (flag or TWILIO_FROM_PHONE)")
	}

	if shortChallengeTTL {
		challengeTTL = TestShortChallengeTTL
	}

	//----------------------------------------------------------------------
	// Build and return the configuration object.
	//----------------------------------------------------------------------
	return &Config{
		AppName:                    appName,
		AppPort:                    appPort,
		AppUrl:                     appUrl,
		DBUrl:                      dbUrl,
		DBEncryptionKey:            decodedKey,
		RPID:                       rpID,
		RPName:                     rpName,
		ExpectedOrigin:             expectedOrigin,
		StrictCeremonyChecks:       strictChecks,
		ChallengeTTL:               challengeTTL,
		CeremonyTimeout:            DefaultCeremonyTimeout,
		SweepInterval:              DefaultSweepInterval,
		TokenExpiry:                DefaultTokenExpiry,
		RefreshTokenExpiry:         DefaultRefreshTokenExpiry,
		VerificationCodeLength:     VerificationCodeLength,
		VerificationCodeExpiry:     verificationCodeExpiry,
		RecoveryCodeCount:          RecoveryCodeCount,
		TOTPIssuer:                 rpName,
		TwilioAccountSID:           twilioAccountSID,
		TwilioAuthToken:            twilioAuthToken,
		SendGridAPIKey:             sendGridAPIKey,
		RSAPrivateKey:              privateKey,
		RSAPublicKey:               publicKey,
		LDFlag_SendgridFromEmail:   sendgridFromEmail,
		LDFlag_TwilioFromPhone:     twilioFromPhone,
		LDFlag_SendgridSandboxMode: sendgridSandboxMode,
		LDFlag_ShortChallengeTTL:   shortChallengeTTL,
		LDFlag_CORSHighSecurity:    corsHighSecurity,
	}
}

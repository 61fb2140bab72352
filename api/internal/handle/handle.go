package handle

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"go.uber.org/zap"

	"drawcal/api/internal/auth"
	"drawcal/api/internal/calculator"
)

const (
	defaultTimeout = 180 * time.Second
	defaultMaxBody = 32 << 20
)

type Options struct {
	Analyzer       *calculator.Analyzer
	Auth           *auth.Service
	Google         *auth.Google
	FrontendURL    string
	SecureCookies  bool
	RequestTimeout time.Duration
	MaxBodyBytes   int64 // /calculator/process body cap, defaults to 32 MiB
	Logger         *zap.Logger
}

type Handle struct {
	analyzer      *calculator.Analyzer
	auth          *auth.Service
	google        *auth.Google
	frontendURL   string
	secureCookies bool
	timeout       time.Duration
	maxBody       int64
	logger        *zap.Logger

	validate   *validator.Validate
	translator ut.Translator
}

func New(opts Options) *Handle {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	validate := validator.New()
	enLocale := en.New()
	trans, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handle{
		analyzer:      opts.Analyzer,
		auth:          opts.Auth,
		google:        opts.Google,
		frontendURL:   strings.TrimRight(opts.FrontendURL, "/"),
		secureCookies: opts.SecureCookies,
		timeout:       timeout,
		maxBody:       maxBody,
		logger:        logger,
		validate:      validate,
		translator:    trans,
	}
}

// check validates req and joins the translated messages.
func (h *Handle) check(req any) (string, bool) {
	err := h.validate.Struct(req)
	if err == nil {
		return "", true
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error(), false
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(h.translator))
	}
	return strings.Join(msgs, ", "), false
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

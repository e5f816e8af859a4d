package config

const (
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppHTTPAddr       = ":8000"
	defaultAuthAPIKey        = "PUT_STUDENT_USERNAME_HERE"
	defaultAuthHeader        = "apikey"
	defaultHTTPRateBurst     = 10
	defaultAIProvider        = "openai"
	defaultAIOpenAIURL       = "https://api.openai.com/v1"
	defaultAIOpenAIModel     = "gpt-5-nano"
	defaultAIGeminiModel     = "gemini-2.5-flash"
	defaultAITimeout         = 60
	defaultAITemperature     = 0.2
	defaultMothershipURL     = "https://mothership-crg7hzedd6ckfegv.eastus-01.azurewebsites.net"
	defaultMothershipAPIKey  = "SET_ME"
	defaultMothershipTimeout = 20
	defaultPositionsPath     = "data/current_positions.json"
	defaultHistoryPath       = "data/trading_history.json"
)

// keySet records which dotted keys were explicitly present in the file or env,
// so an explicit empty value is never overwritten by a default.
type keySet map[string]struct{}

func (k keySet) mark(key string) {
	k[key] = struct{}{}
}

func (k keySet) has(key string) bool {
	_, ok := k[key]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, fields ...fieldDefault) {
	for _, f := range fields {
		if keys.has(f.key) {
			continue
		}
		if f.need == nil || f.need() {
			f.apply()
		}
	}
}

func stringFieldDefault(key string, target *string, value string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target == "" },
		apply: func() { *target = value },
	}
}

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Auth.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Mothership.applyDefaults(keys)
	c.Store.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
	)
}

func (a *AuthConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("auth.api_key", &a.APIKey, defaultAuthAPIKey),
		stringFieldDefault("auth.header", &a.Header, defaultAuthHeader),
	)
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "http.rate_burst",
			need:  func() bool { return h.RateBurst <= 0 },
			apply: func() { h.RateBurst = defaultHTTPRateBurst },
		},
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("ai.provider", &a.Provider, defaultAIProvider),
		fieldDefault{
			key:   "ai.timeout_seconds",
			need:  func() bool { return a.TimeoutSeconds <= 0 },
			apply: func() { a.TimeoutSeconds = defaultAITimeout },
		},
		fieldDefault{
			key:   "ai.temperature",
			need:  func() bool { return a.Temperature == 0 },
			apply: func() { a.Temperature = defaultAITemperature },
		},
	)
	switch a.ProviderName() {
	case "gemini":
		applyFieldDefaults(keys, stringFieldDefault("ai.model", &a.Model, defaultAIGeminiModel))
	default:
		applyFieldDefaults(keys,
			stringFieldDefault("ai.model", &a.Model, defaultAIOpenAIModel),
			stringFieldDefault("ai.api_url", &a.APIURL, defaultAIOpenAIURL),
		)
	}
}

func (m *MothershipConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("mothership.url", &m.URL, defaultMothershipURL),
		stringFieldDefault("mothership.api_key", &m.APIKey, defaultMothershipAPIKey),
		fieldDefault{
			key:   "mothership.timeout_seconds",
			need:  func() bool { return m.TimeoutSeconds <= 0 },
			apply: func() { m.TimeoutSeconds = defaultMothershipTimeout },
		},
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.positions_path", &s.PositionsPath, defaultPositionsPath),
		stringFieldDefault("store.history_path", &s.HistoryPath, defaultHistoryPath),
	)
}

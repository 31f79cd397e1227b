package resolver

// Environment is the execution context of the caller, the page origin and
// the user agent of the browser. Empty values mean the fact is unknown.
type Environment interface {
	Origin() string
	UserAgent() string
}

type environment struct {
	origin    string
	userAgent string
}

// NewEnvironment returns a fixed environment
func NewEnvironment(origin, userAgent string) Environment {
	return &environment{
		origin:    origin,
		userAgent: userAgent,
	}
}

func (e *environment) Origin() string {
	return e.origin
}

func (e *environment) UserAgent() string {
	return e.userAgent
}

func origin(env Environment) string {
	if env == nil {
		return ""
	}
	return env.Origin()
}

func userAgent(env Environment) string {
	if env == nil {
		return ""
	}
	return env.UserAgent()
}

package gatekeeper

// LoggerProvider hands out named loggers so each component logs under its
// own channel.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

type defLoggerProvider struct{}

func (defLoggerProvider) GetLogger(string) Logger {
	return defLogger{}
}

// ResolveLogger resolves the (provider, logger) pair for a component. Any
// explicit logger wins, then the provider's named logger, then the default.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider == nil {
		provider = defLoggerProvider{}
	}

	if logger == nil {
		logger = provider.GetLogger(name)
	}

	if logger == nil {
		logger = defLogger{}
	}

	return provider, logger
}

package logging

import "fmt"

// Printf adapts a structured Logger to the printf-style surface used by the
// API client SDK.
type Printf struct {
	l Logger
}

// NewPrintf wraps l. A nil l yields a no-op adapter.
func NewPrintf(l Logger) *Printf {
	if l == nil {
		l = NewNopLogger()
	}
	return &Printf{l: l}
}

func (p *Printf) Debugf(format string, args ...interface{}) { p.l.Debug(fmt.Sprintf(format, args...)) }
func (p *Printf) Infof(format string, args ...interface{})  { p.l.Info(fmt.Sprintf(format, args...)) }
func (p *Printf) Warnf(format string, args ...interface{})  { p.l.Warn(fmt.Sprintf(format, args...)) }
func (p *Printf) Errorf(format string, args ...interface{}) { p.l.Error(fmt.Sprintf(format, args...)) }

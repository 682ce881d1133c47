// SPDX-License-Identifier: MIT
package transport

import (
	applog "spectrum/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each message at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	switch v := data.(type) {
	case Frame:
		applog.WithFields(applog.Fields{
			"seq":  v.Seq,
			"mode": v.Mode,
			"bins": len(v.Bins),
		}).Debug("LOG_TRANSPORT: frame")
	default:
		applog.Debugf("LOG_TRANSPORT: received (%T): %+v", data, data)
	}
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)

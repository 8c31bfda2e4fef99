// Package logs duplicates process logs to a file and scrubs credentials from
// URLs that participants publish on chain before those URLs are logged.
package logs

import (
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

func addLogWriter(w io.Writer) {
	mw := io.MultiWriter(logrus.StandardLogger().Out, w)
	logrus.SetOutput(mw)
}

// ConfigurePersistentLogging appends everything written to stdout to the
// given file as well.
func ConfigurePersistentLogging(logFileName string) error {
	logrus.WithField("logFileName", logFileName).Info("Logs will be made persistent")
	f, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec G304
	if err != nil {
		return err
	}

	addLogWriter(f)

	logrus.Info("File logging initialized")
	return nil
}

// MaskCredentialsLogging hides the userinfo, path, query and fragment of a
// URL so participant endpoints can be logged without leaking embedded
// credentials. Strings that do not parse as URLs are returned unchanged.
func MaskCredentialsLogging(raw string) string {
	masked := raw
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		masked = strings.Replace(masked, u.User.String(), "***", 1)
	}
	if len(u.RequestURI()) > 1 { // ignore the bare "/"
		masked = strings.Replace(masked, u.RequestURI(), "/***", 1)
	}
	if len(u.Fragment) > 0 {
		masked = strings.Replace(masked, u.RawFragment, "***", 1)
	}
	return masked
}

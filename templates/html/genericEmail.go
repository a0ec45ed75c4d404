package templates

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// RenderGenericEmail generates branded HTML for a generic email.
// The subject is displayed in the header banner, and bodyContent is plain text
// that gets HTML-escaped and has newlines converted to <br> tags.
func RenderGenericEmail(subject, bodyContent string) string {
	escaped := html.EscapeString(bodyContent)
	htmlBody := strings.ReplaceAll(escaped, "\n", "<br>")

	safeSubject := html.EscapeString(subject)

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f5f7; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: linear-gradient(135deg, #1b4332 0%%, #2d6a4f 100%%); padding: 40px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 24px; font-weight: 700; }
    .content { padding: 40px 30px; color: #1f2937; line-height: 1.6; font-size: 15px; }
    .footer { padding: 30px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid rgba(0,0,0,0.1); }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      <p>&copy; EstateKit Access</p>
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, htmlBody)
}

// RenderVisitorArrivalEmail generates the notification sent to a resident
// when their visitor's code is accepted at a gate.
func RenderVisitorArrivalEmail(residentName, visitorName, code, gate string, at time.Time) string {
	visitor := visitorName
	if visitor == "" {
		visitor = "Your visitor"
	}
	where := ""
	if gate != "" {
		where = fmt.Sprintf(" at %s", gate)
	}
	body := fmt.Sprintf("Hi %s,\n\n%s was admitted%s using code %s on %s.\n\nIf you were not expecting this visit, contact your estate security desk immediately.",
		residentName, visitor, where, code, at.Format("Mon, 02 Jan 2006 15:04"))
	return RenderGenericEmail("Visitor Admitted", body)
}

// RenderPendingVerificationEmail generates the notification sent to a
// resident when a gate verification is waiting on their confirmation.
func RenderPendingVerificationEmail(residentName, visitorName, code string) string {
	visitor := visitorName
	if visitor == "" {
		visitor = "A visitor"
	}
	body := fmt.Sprintf("Hi %s,\n\n%s is at the gate with code %s and your estate requires your confirmation before entry.\n\nOpen the app to approve or ignore this request.",
		residentName, visitor, code)
	return RenderGenericEmail("Visitor Awaiting Confirmation", body)
}

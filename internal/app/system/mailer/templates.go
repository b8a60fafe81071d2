// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// OTPEmailData holds data for the password-reset code email.
type OTPEmailData struct {
	SiteName  string
	Code      string
	ExpiresIn string // e.g. "10 minutes"
}

// BuildOTPEmail creates the password-reset code email with both HTML and
// text bodies. The caller sets To.
func BuildOTPEmail(data OTPEmailData) Email {
	var text bytes.Buffer
	text.WriteString(fmt.Sprintf("Your %s password reset code is: %s\n\n", data.SiteName, data.Code))
	text.WriteString(fmt.Sprintf("This code expires in %s.\n\n", data.ExpiresIn))
	text.WriteString("If you did not request a password reset, you can safely ignore this email.\n")

	return Email{
		Subject:  fmt.Sprintf("Your %s password reset code", data.SiteName),
		TextBody: text.String(),
		HTMLBody: renderCodeHTML(data.SiteName, data.Code, data.ExpiresIn),
	}
}

// CredentialEmailData holds data for the temporary-credential email sent on
// approval or invite.
type CredentialEmailData struct {
	SiteName string
	Name     string
	Email    string
	Password string
	LoginURL string
}

// BuildCredentialEmail creates the temporary-credential email.
func BuildCredentialEmail(data CredentialEmailData) Email {
	var text bytes.Buffer
	text.WriteString(fmt.Sprintf("Hello %s,\n\n", data.Name))
	text.WriteString(fmt.Sprintf("Your %s volunteer account is ready.\n\n", data.SiteName))
	text.WriteString(fmt.Sprintf("Email: %s\nTemporary password: %s\n\n", data.Email, data.Password))
	text.WriteString(fmt.Sprintf("Sign in at %s and change your password on first login.\n", data.LoginURL))

	return Email{
		ToName:   data.Name,
		Subject:  fmt.Sprintf("Welcome to %s", data.SiteName),
		TextBody: text.String(),
		HTMLBody: renderCodeHTML(data.SiteName, data.Password, ""),
	}
}

// RejectionEmailData holds data for the application-rejected email.
type RejectionEmailData struct {
	SiteName string
	Name     string
	Reason   string
}

// BuildRejectionEmail creates the application-rejected email.
func BuildRejectionEmail(data RejectionEmailData) Email {
	var text bytes.Buffer
	text.WriteString(fmt.Sprintf("Hello %s,\n\n", data.Name))
	text.WriteString(fmt.Sprintf("Thank you for applying to %s. We are unable to accept your application at this time.\n\n", data.SiteName))
	text.WriteString("Reason: " + data.Reason + "\n\n")
	text.WriteString("You are welcome to apply again in the future.\n")

	return Email{
		ToName:   data.Name,
		Subject:  fmt.Sprintf("Your %s application", data.SiteName),
		TextBody: text.String(),
	}
}

// BuildPasswordChangedEmail creates the notification sent after a password
// change so the account owner learns about changes they did not make.
func BuildPasswordChangedEmail(siteName, name string) Email {
	var text bytes.Buffer
	text.WriteString(fmt.Sprintf("Hello %s,\n\n", name))
	text.WriteString(fmt.Sprintf("The password for your %s account was just changed.\n\n", siteName))
	text.WriteString("If this was not you, reset your password immediately and contact an administrator.\n")

	return Email{
		ToName:   name,
		Subject:  fmt.Sprintf("%s password changed", siteName),
		TextBody: text.String(),
	}
}

func renderCodeHTML(siteName, code, expiresIn string) string {
	tmpl := template.Must(template.New("code").Parse(codeHTMLTemplate))
	var buf bytes.Buffer
	_ = tmpl.Execute(&buf, map[string]string{
		"SiteName":  siteName,
		"Code":      code,
		"ExpiresIn": expiresIn,
	})
	return buf.String()
}

const codeHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #166534;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 24px; text-align: center;">
                <span style="font-size: 28px; font-weight: 700; letter-spacing: 6px; color: #1f2937; font-family: 'Courier New', monospace;">{{.Code}}</span>
              </div>
              {{if .ExpiresIn}}
              <p style="margin: 24px 0 0; font-size: 13px; color: #9ca3af; text-align: center;">
                This code expires in {{.ExpiresIn}}.
              </p>
              {{end}}
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">
                If you did not expect this email, you can safely ignore it.
              </p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`

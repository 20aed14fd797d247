package mail

import "fmt"

// OTPSubject is the subject line for signup verification mail
const OTPSubject = "Email Verification – BSW IIT Delhi"

// OTPEmailHTML renders the signup verification mail body
func OTPEmailHTML(otp string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>BSW IIT Delhi – OTP Verification</title>
  </head>
  <body style="margin:0; padding:0; background-color:#f4f6f8; font-family:Arial, Helvetica, sans-serif;">
    <table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f4f6f8; padding:24px;">
      <tr>
        <td align="center">
          <table width="100%%" cellpadding="0" cellspacing="0" style="max-width:600px; background-color:#ffffff; border-radius:8px; overflow:hidden;">
            <tr>
              <td style="background-color:#102C3A; padding:20px 24px;">
                <h2 style="margin:0; color:#ffffff; font-size:20px; font-weight:600;">
                  Board for Student Welfare
                </h2>
                <p style="margin:4px 0 0; color:#dbe6ec; font-size:14px;">
                  Indian Institute of Technology Delhi
                </p>
              </td>
            </tr>
            <tr>
              <td style="padding:28px 24px; color:#1f2933;">
                <p style="margin:0 0 16px; font-size:15px;">Hello,</p>
                <p style="margin:0 0 16px; font-size:15px;">
                  Use the one-time passcode below to verify your email address.
                  It is valid for the next 10 minutes.
                </p>
                <p style="margin:0 0 24px; text-align:center;">
                  <span style="display:inline-block; padding:12px 28px; background-color:#f1f5f9; border-radius:6px; font-size:28px; font-weight:700; letter-spacing:6px; color:#102C3A;">%s</span>
                </p>
                <p style="margin:0; font-size:13px; color:#6b7280;">
                  If you did not request this code, you can safely ignore this email.
                </p>
              </td>
            </tr>
            <tr>
              <td style="background-color:#f8fafc; padding:16px 24px; font-size:12px; color:#9ca3af;">
                Board for Student Welfare, IIT Delhi
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>`, otp)
}

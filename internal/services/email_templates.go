package services

// verificationEmailHTML is a branded template for sending verification codes.
// Format args: title, intro text, code, current year.
const verificationEmailHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif; line-height: 1.6; color: #333; background-color: #f8f9fa; margin: 0; padding: 20px; }
  .container { max-width: 500px; margin: auto; background: #ffffff; border: 1px solid #e9ecef; border-radius: 8px; overflow: hidden; }
  .header { background-color: #1f6feb; color: white; padding: 20px; text-align: center; }
  .header h1 { margin: 0; font-size: 24px; }
  .content { padding: 30px; text-align: center; }
  .code { font-size: 36px; font-weight: bold; letter-spacing: 8px; color: #1f6feb; background-color: #f1f3f5; padding: 15px 20px; border-radius: 5px; display: inline-block; margin: 20px 0; }
  .footer { background-color: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #6c757d; }
  p { margin-bottom: 1em; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Sign-In Code</h1>
    </div>
    <div class="content">
      <p>%s</p>
      <div class="code">%s</div>
      <p>If you did not request this code, you can safely ignore this email.</p>
    </div>
    <div class="footer">
      © %d SecurePasskey. All rights reserved.
    </div>
  </div>
</body>
</html>`

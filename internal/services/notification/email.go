package notification

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// EmailService handles sending emails
type EmailService struct {
	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
}

// NewEmailService creates a new email service
func NewEmailService() *EmailService {
	return &EmailService{
		smtpHost:     os.Getenv("SMTP_HOST"),
		smtpPort:     os.Getenv("SMTP_PORT"),
		smtpUsername: os.Getenv("SMTP_USERNAME"),
		smtpPassword: os.Getenv("SMTP_PASSWORD"),
		fromEmail:    os.Getenv("FROM_EMAIL"),
	}
}

// SendOwnerFoundAlert tells a registered owner that an ID matching theirs was
// reported found.
func (s *EmailService) SendOwnerFoundAlert(toEmail, ownerName, reportNumber, campus string) error {
	subject := "Your ID May Have Been Found - PataID"

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #059669; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
			.report { font-size: 20px; font-weight: bold; letter-spacing: 2px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>PataID</h1>
			</div>
			<div class="content">
				<h2>Hello %s,</h2>
				<p>Good news! An ID matching your registered number was just reported found on <strong>%s</strong> campus.</p>
				<p>Report number: <span class="report">%s</span></p>
				<p>Log in to PataID and start a claim to verify it is yours. You will need to confirm your identity before collection details are released.</p>
				<p>If this is not your ID, no action is needed.</p>
				<p>Best regards,<br>The PataID Team</p>
			</div>
		</div>
	</body>
	</html>
	`, ownerName, campus, reportNumber)

	return s.sendEmail(toEmail, subject, body)
}

// SendClaimOutcome tells a claimant how their verification ended.
func (s *EmailService) SendClaimOutcome(toEmail, claimantName, reportNumber, outcome, collectionPoint string) error {
	subject := fmt.Sprintf("Claim Update for %s - PataID", reportNumber)

	var detail string
	if outcome == "verified" {
		detail = fmt.Sprintf("<p>Your claim was <strong>approved</strong>. You can collect your ID at: <strong>%s</strong>. Carry a secondary form of identification.</p>", collectionPoint)
	} else {
		detail = "<p>Your claim was <strong>not approved</strong>. If you believe this is a mistake, visit the security office with supporting documents.</p>"
	}

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #059669; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>PataID</h1>
			</div>
			<div class="content">
				<h2>Hello %s,</h2>
				<p>There is an update on your claim for report <strong>%s</strong>.</p>
				%s
				<p>Best regards,<br>The PataID Team</p>
			</div>
		</div>
	</body>
	</html>
	`, claimantName, reportNumber, detail)

	return s.sendEmail(toEmail, subject, body)
}

// SendReportConfirmation thanks a finder and gives them their report number.
func (s *EmailService) SendReportConfirmation(toEmail, finderName, reportNumber string) error {
	subject := fmt.Sprintf("Report %s Received - PataID", reportNumber)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #059669; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
			.report { font-size: 20px; font-weight: bold; letter-spacing: 2px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>PataID</h1>
			</div>
			<div class="content">
				<h2>Hello %s,</h2>
				<p>Thank you for reporting a found ID. Your report number is:</p>
				<p><span class="report">%s</span></p>
				<p>We will notify the owner if they are registered on PataID. You can check the status of your report anytime from your dashboard.</p>
				<p>Best regards,<br>The PataID Team</p>
			</div>
		</div>
	</body>
	</html>
	`, finderName, reportNumber)

	return s.sendEmail(toEmail, subject, body)
}

// SendDocumentReviewRequest asks a security guard to review uploaded claim
// documents.
func (s *EmailService) SendDocumentReviewRequest(toEmail, guardName, reportNumber, campus string) error {
	subject := fmt.Sprintf("Document Review Needed for %s - PataID", reportNumber)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #059669; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>PataID</h1>
			</div>
			<div class="content">
				<h2>Hello %s,</h2>
				<p>A claimant has uploaded supporting documents for report <strong>%s</strong> on %s campus.</p>
				<p>Please log in to the security dashboard to review and approve or reject the claim.</p>
				<p>Best regards,<br>The PataID Team</p>
			</div>
		</div>
	</body>
	</html>
	`, guardName, reportNumber, campus)

	return s.sendEmail(toEmail, subject, body)
}

// SendGuardClaimAlert tells a security guard that a claim was just opened on
// a report at their campus, including which verification method was chosen.
func (s *EmailService) SendGuardClaimAlert(toEmail, guardName, reportNumber, campus, method string) error {
	subject, body := guardClaimAlertMessage(guardName, reportNumber, campus, method)
	return s.sendEmail(toEmail, subject, body)
}

func guardClaimAlertMessage(guardName, reportNumber, campus, method string) (string, string) {
	subject := fmt.Sprintf("New Claim Started on %s - PataID", reportNumber)

	body := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: Arial, sans-serif; line-height: 1.6; }
			.container { max-width: 600px; margin: 0 auto; padding: 20px; }
			.header { background-color: #059669; color: white; padding: 10px; text-align: center; }
			.content { padding: 20px; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>PataID</h1>
			</div>
			<div class="content">
				<h2>Hello %s,</h2>
				<p>A claimant has started a claim on report <strong>%s</strong> on %s campus using the <strong>%s</strong> verification method.</p>
				<p>No action is needed yet; you will get a separate notification if the claim requires a manual document review.</p>
				<p>Best regards,<br>The PataID Team</p>
			</div>
		</div>
	</body>
	</html>
	`, guardName, reportNumber, campus, method)

	return subject, body
}

// sendEmail sends an email with HTML content
func (s *EmailService) sendEmail(toEmail, subject, htmlBody string) error {
	if s.smtpHost == "" || s.smtpPort == "" || s.smtpUsername == "" || s.smtpPassword == "" {
		log.Println("Email service not configured properly. Check environment variables.")
		return fmt.Errorf("email service not configured")
	}

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	from := fmt.Sprintf("From: PataID <%s>\n", s.fromEmail)
	to := fmt.Sprintf("To: %s\n", toEmail)
	subject = fmt.Sprintf("Subject: %s\n", subject)

	message := []byte(from + to + subject + mime + htmlBody)

	auth := smtp.PlainAuth("", s.smtpUsername, s.smtpPassword, s.smtpHost)
	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)

	return smtp.SendMail(addr, auth, s.fromEmail, []string{toEmail}, message)
}

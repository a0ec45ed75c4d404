package handlers

import (
	"context"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/estatekit/estate-access-api/api"
	"github.com/estatekit/estate-access-api/databases"
	"github.com/estatekit/estate-access-api/models"
	templates "github.com/estatekit/estate-access-api/templates/html"
)

// EmailNotifier emails the issuing resident when their visitor is admitted or
// is waiting on confirmation. It implements access.Listener.
type EmailNotifier struct {
	UDB databases.UserDatabase
}

// HandleAccessEvent sends the resident an email for verification events.
// Creation and revocation events are resident-initiated and not worth an
// email; the websocket hub covers those.
func (n EmailNotifier) HandleAccessEvent(event models.AccessEvent) {
	switch event.Type {
	case models.EventVerificationAccepted, models.EventVerificationPending:
	default:
		return
	}

	ctx, cancel := api.WithQueryTimeout(context.Background())
	defer cancel()

	email, name := n.residentEmail(ctx, event.ResidentID)
	if email == "" {
		return
	}

	var subject, htmlContent, plainText string
	if event.Type == models.EventVerificationAccepted {
		gate := event.Meta["gate"]
		subject = "Visitor Admitted"
		htmlContent = templates.RenderVisitorArrivalEmail(name, event.VisitorName, event.CodeID, gate, event.OccurredAt)
		plainText = "Your visitor was admitted at the estate gate."
	} else {
		subject = "Visitor Awaiting Confirmation"
		htmlContent = templates.RenderPendingVerificationEmail(name, event.VisitorName, event.CodeID)
		plainText = "A visitor is at the gate waiting for your confirmation."
	}

	if err := n.sendEmail(email, name, subject, htmlContent, plainText); err != nil {
		zap.S().Errorw("failed to send access notification email",
			"residentId", event.ResidentID, "eventType", event.Type, "error", err)
	}
}

func (n EmailNotifier) residentEmail(ctx context.Context, residentID string) (email, name string) {
	var user models.User
	err := n.UDB.FindOne(ctx, bson.M{"_id": residentID}).Decode(&user)
	if err != nil || user.Details.Email == "" {
		return "", ""
	}
	return user.Details.Email, user.Details.Name
}

func (n EmailNotifier) sendEmail(toEmail, toName, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("EstateKit Access", "no-reply@estatekit.app")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}

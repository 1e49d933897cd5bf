package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	user         = "me"
	listPageSize = 100
	inboxLabel   = "INBOX"
)

// Service is the narrow slice of the Gmail API the grabber needs.
// It exists so the pipeline can be tested against a fake mailbox and
// so the mail backend could be swapped without touching the grabber.
type Service interface {
	// ListMessages returns one page of message references matching the
	// search query, newest first. Pass the previous response's
	// NextPageToken to continue; an empty token starts from the top.
	ListMessages(ctx context.Context, query, pageToken string) (*gmail.ListMessagesResponse, error)
	// GetMessage fetches the full message, including parts and headers.
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
	// GetAttachment fetches an attachment body by id.
	GetAttachment(ctx context.Context, messageID, attachmentID string) (*gmail.MessagePartBody, error)
}

// gmailService implements Service against the real Gmail API.
type gmailService struct {
	svc *gmail.Service
}

// NewService builds a read-only Gmail service from a client secret
// file and a stored OAuth token. If the token file is missing the
// interactive authorization flow is run once and the token saved for
// subsequent runs.
func NewService(ctx context.Context, credentialsPath, tokenPath string) (Service, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	httpClient, err := oauthClient(ctx, oauthConfig, tokenPath)
	if err != nil {
		return nil, err
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return &gmailService{svc: svc}, nil
}

func (s *gmailService) ListMessages(ctx context.Context, query, pageToken string) (*gmail.ListMessagesResponse, error) {
	call := s.svc.Users.Messages.List(user).
		LabelIds(inboxLabel).
		Q(query).
		MaxResults(listPageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

func (s *gmailService) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	return s.svc.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
}

func (s *gmailService) GetAttachment(ctx context.Context, messageID, attachmentID string) (*gmail.MessagePartBody, error) {
	return s.svc.Users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
}

// oauthClient returns an HTTP client authorized from the token file,
// falling back to the interactive console flow when no token exists.
func oauthClient(ctx context.Context, config *oauth2.Config, tokenPath string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		tok, err = tokenFromWeb(config)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
	}
	return config.Client(ctx, tok), nil
}

func tokenFromWeb(config *oauth2.Config) (*oauth2.Token, error) {
	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser then type the "+
		"authorization code:\n%v\n", authURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %w", err)
	}
	tok, err := config.Exchange(context.Background(), authCode)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to save oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

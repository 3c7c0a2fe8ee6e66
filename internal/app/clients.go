package app

import (
	"fmt"
	"strings"

	"github.com/communityvault/backend/internal/clients/openai"
	"github.com/communityvault/backend/internal/clients/pinecone"
	"github.com/communityvault/backend/internal/clients/sendgrid"
	"github.com/communityvault/backend/internal/clients/whop"
	"github.com/communityvault/backend/internal/platform/envutil"
	"github.com/communityvault/backend/internal/platform/logger"
)

type Clients struct {
	Openai   openai.Client
	Vectors  pinecone.VectorStore
	Whop     whop.Client
	Sendgrid sendgrid.Client
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	openaiClient, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	pc, err := pinecone.New(log, pinecone.Config{
		APIKey: envutil.Str("PINECONE_API_KEY", ""),
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init pinecone client: %w", err)
	}
	vectors, err := pinecone.NewVectorStore(log, pc)
	if err != nil {
		return Clients{}, fmt.Errorf("init pinecone vector store: %w", err)
	}

	whopClient, err := whop.NewFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init whop client: %w", err)
	}

	// Email is optional; purchase and broadcast notifications degrade
	// to in-app only without it.
	var sendgridClient sendgrid.Client
	if strings.TrimSpace(envutil.Str("SENDGRID_API_KEY", "")) != "" {
		sendgridClient, err = sendgrid.NewFromEnv(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
	} else {
		log.Warn("SENDGRID_API_KEY not set; email notifications disabled")
	}

	return Clients{
		Openai:   openaiClient,
		Vectors:  vectors,
		Whop:     whopClient,
		Sendgrid: sendgridClient,
	}, nil
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/vigil/adapters/cognito"
	"github.com/layer-3/vigil/adapters/events"
	"github.com/layer-3/vigil/service"
	"github.com/layer-3/vigil/transport/http"
)

func main() {
	ctx := context.Background()

	clientID := os.Getenv("COGNITO_CLIENT_ID")
	if clientID == "" {
		log.Fatal("COGNITO_CLIENT_ID is required")
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	// Get Redis URL from environment
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)

	// Initialize Watermill Redis publisher for auth events
	logger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: redisClient,
		},
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create Redis publisher: %v", err)
	}

	identity := cognito.NewClient(cip.NewFromConfig(awsCfg), clientID)
	eventPub := events.NewWatermillPublisher(publisher)

	authService := service.NewAuthService(identity, eventPub)
	if issuer := os.Getenv("MFA_ISSUER"); issuer != "" {
		label := os.Getenv("MFA_ISSUER_LABEL")
		if label == "" {
			label = issuer
		}
		authService = authService.WithIssuer(issuer, label)
	}

	router := http.SetupRouter(authService)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":9000"
	}
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

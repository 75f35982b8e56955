package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSClient defines SQS operations used by Lambda handlers.
type SQSClient interface {
	SendMessage(ctx context.Context, queueURL, body string, attrs map[string]string) error
}

// SQSAPI is the subset of the SQS client we use.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type sqsClient struct {
	client SQSAPI
}

// NewSQSClient creates an SQSClient from an SQS service client.
func NewSQSClient(client SQSAPI) SQSClient {
	return &sqsClient{client: client}
}

// SendMessage publishes body with string message attributes, which
// subscribers use for filtering without decoding the body.
func (c *sqsClient) SendMessage(ctx context.Context, queueURL, body string, attrs map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	_, err := c.client.SendMessage(ctx, input)
	if err != nil {
		return fmt.Errorf("send sqs message: %w", err)
	}
	return nil
}

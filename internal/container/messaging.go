package container

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/feedback-demo-go/internal/analysis"
	"github.com/serroba/feedback-demo-go/internal/events"
	"github.com/serroba/feedback-demo-go/internal/feedback"
	"github.com/serroba/feedback-demo-go/internal/messaging"
	"go.uber.org/zap"
)

// PublisherGroupPackage provides the Redis stream publisher and the typed
// publish functions built on it. With events disabled they discard events.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		publisher, err := messaging.NewRedisPublisher(
			streamClient(do.MustInvoke[*Options](i)),
			do.MustInvoke[*zap.Logger](i),
		)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[events.FeedbackSubmittedEvent], error) {
		return publishFunc[events.FeedbackSubmittedEvent](i, events.TopicFeedbackSubmitted)
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[events.FeedbackAnalyzedEvent], error) {
		return publishFunc[events.FeedbackAnalyzedEvent](i, events.TopicFeedbackAnalyzed)
	})
}

// streamClient opens a connection owned by one stream publisher or subscriber,
// which closes it on shutdown.
func streamClient(opts *Options) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
}

func publishFunc[T any](i *do.Injector, topic string) (messaging.Publish[T], error) {
	if !do.MustInvoke[*Options](i).Events {
		return messaging.NoopPublish[T](), nil
	}

	group, err := do.Invoke[*messaging.PublisherGroup](i)
	if err != nil {
		return nil, err
	}

	return messaging.NewPublishFunc[T](group.Publisher(), topic), nil
}

// ConsumerGroupPackage provides the analysis workers: one consumer analyses
// submitted feedback, another reports analysed high-priority entries.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (message.Subscriber, error) {
		opts := do.MustInvoke[*Options](i)

		return messaging.NewRedisSubscriber(
			streamClient(opts),
			opts.ConsumerGroup,
			do.MustInvoke[*zap.Logger](i),
		)
	})

	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := do.Invoke[message.Subscriber](i)
		if err != nil {
			return nil, err
		}

		repo, err := do.Invoke[feedback.Repository](i)
		if err != nil {
			return nil, err
		}

		agent, err := do.Invoke[*analysis.Agent](i)
		if err != nil {
			return nil, err
		}

		publishAnalyzed := do.MustInvoke[messaging.Publish[events.FeedbackAnalyzedEvent]](i)

		analyzer := events.NewAnalysisHandler(repo, agent, publishAnalyzed, logger)
		notifier := events.NewPriorityNotifier(logger)

		submitted := messaging.NewConsumer[events.FeedbackSubmittedEvent](
			subscriber, events.TopicFeedbackSubmitted, analyzer.Handle, logger,
			messaging.WithHandlerTimeout(opts.ConsumerTimeout),
		)
		analyzed := messaging.NewConsumer[events.FeedbackAnalyzedEvent](
			subscriber, events.TopicFeedbackAnalyzed, notifier.Handle, logger,
		)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(submitted)
		group.Add(analyzed)

		return group, nil
	})
}

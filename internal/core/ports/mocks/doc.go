// Package mocks provides test doubles for ports interfaces.
//
// These mocks are designed to be simple, thread-safe, in-memory implementations
// suitable for unit testing. Each mock provides:
//
//   - Default behavior that returns reasonable test values
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for setting state directly
//   - Recorded calls for asserting order and arguments
//
// # Usage Example
//
//	func TestMyService(t *testing.T) {
//		client := mocks.NewChatClient()
//		client.SetParticipants(-100123, []domain.Participant{{UserID: 1, IsBot: true}})
//
//		svc := NewService(client)
//		// ... test service behavior
//	}
//
// # Available Mocks
//
//   - ChatClient: implements ports.ChatClient
//   - Notifier: implements ports.Notifier
package mocks

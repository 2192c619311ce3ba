package ws

import "sync"

// outboxSize bounds the events queued for one subscriber. A subscriber that
// falls this far behind is disconnected.
const outboxSize = 16

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans place events out to the subscribers of each user. Each
// subscriber is written to by its own goroutine, so a stalled connection
// never holds up Broadcast.
type Hub struct {
	clients   map[string]map[Subscriber]*outbox
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	count     chan countRequest
	done      chan struct{}
	closeOnce sync.Once
}

// message couples payload with user identifier.
type message struct {
	userID  string
	payload []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	userID string
	client Subscriber
}

type countRequest struct {
	userID string
	reply  chan int
}

// outbox queues events for one subscriber.
type outbox struct {
	queue chan []byte
	stop  chan struct{}
	once  sync.Once
}

func (o *outbox) shut() {
	o.once.Do(func() { close(o.stop) })
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]*outbox),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
		count:     make(chan countRequest),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.userID]; !ok {
				h.clients[sub.userID] = make(map[Subscriber]*outbox)
			}
			box := &outbox{queue: make(chan []byte, outboxSize), stop: make(chan struct{})}
			h.clients[sub.userID][sub.client] = box
			go h.pump(sub.userID, sub.client, box)
		case sub := <-h.unreg:
			h.drop(sub.userID, sub.client)
		case msg := <-h.broadcast:
			for c, box := range h.clients[msg.userID] {
				select {
				case box.queue <- msg.payload:
				default:
					h.drop(msg.userID, c)
				}
			}
		case req := <-h.count:
			req.reply <- len(h.clients[req.userID])
		case <-h.done:
			for _, clients := range h.clients {
				for _, box := range clients {
					box.shut()
				}
			}
			h.clients = nil
			return
		}
	}
}

// drop forgets a subscriber and stops its pump. Only run calls it.
func (h *Hub) drop(userID string, client Subscriber) {
	clients, ok := h.clients[userID]
	if !ok {
		return
	}
	if box, ok := clients[client]; ok {
		box.shut()
		delete(clients, client)
	}
	if len(clients) == 0 {
		delete(h.clients, userID)
	}
}

// pump delivers queued events in order and closes the subscriber once it is
// dropped or a send fails.
func (h *Hub) pump(userID string, client Subscriber, box *outbox) {
	defer client.Close()
	for {
		select {
		case payload := <-box.queue:
			if err := client.Send(payload); err != nil {
				h.Unregister(userID, client)
				return
			}
		case <-box.stop:
			return
		}
	}
}

// Register adds a client to a user's stream.
func (h *Hub) Register(userID string, client Subscriber) {
	select {
	case h.register <- subscription{userID: userID, client: client}:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client. The hub closes it.
func (h *Hub) Unregister(userID string, client Subscriber) {
	select {
	case h.unreg <- subscription{userID: userID, client: client}:
	case <-h.done:
	}
}

// Broadcast queues payload for every client of a user. It never waits on a
// client and is a no-op once the hub is closed.
func (h *Hub) Broadcast(userID string, payload []byte) {
	select {
	case h.broadcast <- message{userID: userID, payload: payload}:
	case <-h.done:
	}
}

// Subscribers reports how many clients follow userID.
func (h *Hub) Subscribers(userID string) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countRequest{userID: userID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Close disconnects every client and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

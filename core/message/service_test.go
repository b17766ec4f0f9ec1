package message_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

type testEnv struct {
	conf    *core.Config
	usrRepo user.Repository
	msgRepo message.Repository
	usrSvc  user.Service
	svc     message.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		AppName:                  "Darasa",
		SecretKey:                "secret",
		TestMode:                 true,
		MessageIdempotencyWindow: 5 * time.Minute,
	}
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	msgRepo := inmemdb.NewMessageRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	return &testEnv{
		conf:    conf,
		usrRepo: usrRepo,
		msgRepo: msgRepo,
		usrSvc:  usrSvc,
		svc:     message.NewService(msgRepo, usrSvc, mailSvc, conf),
	}
}

func TestCanSendTo(t *testing.T) {
	admin := user.User{Roles: []string{user.RoleAdmin}}
	teacher := user.User{Roles: []string{user.RoleTeacher}}
	parent := user.User{Roles: []string{user.RoleParent}}
	student := user.User{Roles: []string{user.RoleStudent}}

	tests := []struct {
		name              string
		sender, recipient user.User
		want              bool
	}{
		{name: "admin to student", sender: admin, recipient: student, want: true},
		{name: "teacher to parent", sender: teacher, recipient: parent, want: true},
		{name: "teacher to student", sender: teacher, recipient: student, want: true},
		{name: "parent to teacher", sender: parent, recipient: teacher, want: true},
		{name: "parent to admin", sender: parent, recipient: admin, want: true},
		{name: "parent to student", sender: parent, recipient: student, want: false},
		{name: "parent to parent", sender: parent, recipient: parent, want: false},
		{name: "student to teacher", sender: student, recipient: teacher, want: true},
		{name: "student to student", sender: student, recipient: student, want: false},
		{name: "student to parent", sender: student, recipient: parent, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := message.CanSendTo(tt.sender, tt.recipient); got != tt.want {
				t.Errorf("CanSendTo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceSend(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)
	student2 := testutil.CreateUser(t, env.usrRepo, "Student2", "student2", "student2@test.cd", "pwd", []string{user.RoleStudent}, true)

	t.Run("teacher to student", func(t *testing.T) {
		msg, err := env.svc.Send(ctx, teacher, message.NewMessage{
			Recipient: student.ID, Subject: "Homework", Content: "Due Friday",
		})
		if err != nil {
			t.Fatalf("Send(): %v", err)
		}
		if msg.SenderID != teacher.ID || msg.ReceiverID.String != student.ID {
			t.Errorf("Send() participants = (%v, %v)", msg.SenderID, msg.ReceiverID.String)
		}
		if msg.Kind != message.KindGeneral {
			t.Errorf("Send() kind = %v, want %v", msg.Kind, message.KindGeneral)
		}
	})

	t.Run("recipient by username", func(t *testing.T) {
		msg, err := env.svc.Send(ctx, teacher, message.NewMessage{
			Recipient: "student2", Subject: "Hello", Content: "Hi",
		})
		if err != nil {
			t.Fatalf("Send(): %v", err)
		}
		if msg.ReceiverID.String != student2.ID {
			t.Errorf("Send() receiver = %v, want %v", msg.ReceiverID.String, student2.ID)
		}
	})

	t.Run("student to student forbidden", func(t *testing.T) {
		_, err := env.svc.Send(ctx, student, message.NewMessage{
			Recipient: student2.ID, Subject: "Yo", Content: "Yo",
		})
		if errors.Cause(err) != message.ErrSendForbidden {
			t.Errorf("Send() error = %v, want %v", err, message.ErrSendForbidden)
		}
	})

	t.Run("student to teacher allowed", func(t *testing.T) {
		if _, err := env.svc.Send(ctx, student, message.NewMessage{
			Recipient: teacher.ID, Subject: "Question", Content: "About the homework",
		}); err != nil {
			t.Errorf("Send(): %v", err)
		}
	})

	t.Run("unknown recipient", func(t *testing.T) {
		_, err := env.svc.Send(ctx, teacher, message.NewMessage{
			Recipient: "nobody", Subject: "Hello", Content: "Hi",
		})
		if errors.Cause(err) != user.ErrNotFound {
			t.Errorf("Send() error = %v, want %v", err, user.ErrNotFound)
		}
	})
}

func TestServiceSendIdempotency(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)

	nm := message.NewMessage{Recipient: student.ID, Subject: "Reminder", Content: "Class at 8"}

	first, err := env.svc.Send(ctx, teacher, nm)
	if err != nil {
		t.Fatalf("Send(): %v", err)
	}
	retry, err := env.svc.Send(ctx, teacher, nm)
	if err != nil {
		t.Fatalf("Send(): %v", err)
	}
	if retry.ID != first.ID {
		t.Errorf("retried Send() created a new message: %v != %v", retry.ID, first.ID)
	}

	// an identical message older than the window is not a retry
	old, err := env.msgRepo.CreateMessage(ctx, message.Message{
		SenderID:   teacher.ID,
		ReceiverID: null.StringFrom(student.ID),
		Subject:    "Old news",
		Content:    "From way back",
		Kind:       message.KindGeneral,
		CreatedAt:  time.Now().UTC().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateMessage(): %v", err)
	}
	fresh, err := env.svc.Send(ctx, teacher, message.NewMessage{
		Recipient: student.ID, Subject: "Old news", Content: "From way back",
	})
	if err != nil {
		t.Fatalf("Send(): %v", err)
	}
	if fresh.ID == old.ID {
		t.Errorf("Send() returned a message outside the idempotency window")
	}
}

func TestServiceSendReplyThreading(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)
	stranger := testutil.CreateUser(t, env.usrRepo, "Stranger", "stranger", "stranger@test.cd", "pwd", []string{user.RoleStudent}, true)

	root, err := env.svc.Send(ctx, teacher, message.NewMessage{
		Recipient: student.ID, Subject: "Trip", Content: "Permission slip needed",
	})
	if err != nil {
		t.Fatalf("Send(): %v", err)
	}

	reply, err := env.svc.Send(ctx, student, message.NewMessage{
		Recipient: teacher.ID, Subject: "Re: Trip", Content: "Signed!", ReplyTo: root.ID,
	})
	if err != nil {
		t.Fatalf("Send(): %v", err)
	}
	if reply.ThreadID.String != root.ID {
		t.Errorf("reply ThreadID = %v, want %v", reply.ThreadID.String, root.ID)
	}
	if reply.ReplyToID.String != root.ID {
		t.Errorf("reply ReplyToID = %v, want %v", reply.ReplyToID.String, root.ID)
	}

	// replying to a reply still threads under the root
	nested, err := env.svc.Send(ctx, teacher, message.NewMessage{
		Recipient: student.ID, Subject: "Re: Re: Trip", Content: "Thanks", ReplyTo: reply.ID,
	})
	if err != nil {
		t.Fatalf("Send(): %v", err)
	}
	if nested.ThreadID.String != root.ID {
		t.Errorf("nested reply ThreadID = %v, want %v", nested.ThreadID.String, root.ID)
	}
	if nested.ReplyToID.String != reply.ID {
		t.Errorf("nested reply ReplyToID = %v, want %v", nested.ReplyToID.String, reply.ID)
	}

	t.Run("outsider cannot join thread", func(t *testing.T) {
		_, err := env.svc.Send(ctx, stranger, message.NewMessage{
			Recipient: teacher.ID, Subject: "Re: Trip", Content: "Me too", ReplyTo: root.ID,
		})
		if errors.Cause(err) != message.ErrAccessDenied {
			t.Errorf("Send() error = %v, want %v", err, message.ErrAccessDenied)
		}
	})

	t.Run("unknown parent", func(t *testing.T) {
		_, err := env.svc.Send(ctx, teacher, message.NewMessage{
			Recipient: student.ID, Subject: "Hm", Content: "Hm", ReplyTo: "ca034d02-0000-0000-0000-000000000000",
		})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Send() error = %v, want a validation error", err)
		}
	})
}

func TestServiceBroadcast(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "pwd", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, env.usrRepo, "Teacher2", "teacher2", "teacher2@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)

	t.Run("audience teachers", func(t *testing.T) {
		msgs, err := env.svc.Broadcast(ctx, admin, message.NewBroadcast{
			Audience: message.AudienceTeachers, Subject: "Staff meeting", Content: "Monday 9am",
		})
		if err != nil {
			t.Fatalf("Broadcast(): %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("Broadcast() created %d messages, want 2", len(msgs))
		}
		for _, m := range msgs {
			if !m.Broadcast {
				t.Errorf("Broadcast() message %v not flagged broadcast", m.ID)
			}
			if m.ReceiverID.String != teacher.ID && m.ReceiverID.String != teacher2.ID {
				t.Errorf("Broadcast() unexpected receiver %v", m.ReceiverID.String)
			}
			if m.Kind != message.KindAdministrative {
				t.Errorf("Broadcast() kind = %v, want %v", m.Kind, message.KindAdministrative)
			}
		}
	})

	t.Run("explicit recipients exclude sender and duplicates", func(t *testing.T) {
		msgs, err := env.svc.Broadcast(ctx, admin, message.NewBroadcast{
			Recipients: []string{teacher.ID, teacher.ID, admin.ID},
			Subject:    "Note", Content: "Dupes and self dropped",
		})
		if err != nil {
			t.Fatalf("Broadcast(): %v", err)
		}
		if len(msgs) != 1 {
			t.Fatalf("Broadcast() created %d messages, want 1", len(msgs))
		}
		if msgs[0].ReceiverID.String != teacher.ID {
			t.Errorf("Broadcast() receiver = %v, want %v", msgs[0].ReceiverID.String, teacher.ID)
		}
	})

	t.Run("audience all excludes admins", func(t *testing.T) {
		admin2 := testutil.CreateUser(t, env.usrRepo, "Admin2", "admin2", "admin2@test.cd", "pwd", []string{user.RoleAdmin}, true)

		msgs, err := env.svc.Broadcast(ctx, admin, message.NewBroadcast{
			Audience: message.AudienceAll, Subject: "Term dates", Content: "School reopens Sep 6",
		})
		if err != nil {
			t.Fatalf("Broadcast(): %v", err)
		}
		if len(msgs) != 3 {
			t.Fatalf("Broadcast() created %d messages, want 3", len(msgs))
		}
		for _, m := range msgs {
			if m.ReceiverID.String == admin.ID || m.ReceiverID.String == admin2.ID {
				t.Errorf("Broadcast() reached admin account %v", m.ReceiverID.String)
			}
		}
		want := map[string]bool{teacher.ID: true, teacher2.ID: true, student.ID: true}
		for _, m := range msgs {
			if !want[m.ReceiverID.String] {
				t.Errorf("Broadcast() unexpected receiver %v", m.ReceiverID.String)
			}
		}
	})

	t.Run("deactivated explicit recipients dropped", func(t *testing.T) {
		exTeacher := testutil.CreateUser(t, env.usrRepo, "Gone", "gone", "gone@test.cd", "pwd", []string{user.RoleTeacher}, false)

		msgs, err := env.svc.Broadcast(ctx, admin, message.NewBroadcast{
			Recipients: []string{teacher.ID, exTeacher.ID},
			Subject:    "Handover", Content: "Key return",
		})
		if err != nil {
			t.Fatalf("Broadcast(): %v", err)
		}
		if len(msgs) != 1 {
			t.Fatalf("Broadcast() created %d messages, want 1", len(msgs))
		}
		if msgs[0].ReceiverID.String != teacher.ID {
			t.Errorf("Broadcast() receiver = %v, want %v", msgs[0].ReceiverID.String, teacher.ID)
		}
	})

	t.Run("no recipients", func(t *testing.T) {
		_, err := env.svc.Broadcast(ctx, admin, message.NewBroadcast{
			Recipients: []string{admin.ID}, Subject: "Echo", Content: "Only me",
		})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Broadcast() error = %v, want a validation error", err)
		}
	})

	t.Run("missing audience", func(t *testing.T) {
		_, err := env.svc.Broadcast(ctx, admin, message.NewBroadcast{
			Subject: "Void", Content: "Nobody home",
		})
		if _, ok := errors.Cause(err).(*core.ValidationError); !ok {
			t.Errorf("Broadcast() error = %v, want a validation error", err)
		}
	})
}

func TestServiceResolveThread(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "pwd", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)
	stranger := testutil.CreateUser(t, env.usrRepo, "Stranger", "stranger", "stranger@test.cd", "pwd", []string{user.RoleStudent}, true)

	base := time.Now().UTC().Add(-time.Hour)
	root := testutil.CreateMessage(t, env.msgRepo, teacher, student, "Trip", "Permission slip needed", base)
	reply2 := testutil.CreateReply(t, env.msgRepo, root, teacher, student, "Bring it Monday", base.Add(2*time.Minute))
	reply1 := testutil.CreateReply(t, env.msgRepo, root, student, teacher, "Signed!", base.Add(time.Minute))

	t.Run("ordered oldest first", func(t *testing.T) {
		conv, err := env.svc.ResolveThread(ctx, student, reply2.ID)
		if err != nil {
			t.Fatalf("ResolveThread(): %v", err)
		}
		if conv.ID != root.ID {
			t.Errorf("ResolveThread() conversation id = %v, want %v", conv.ID, root.ID)
		}
		wantOrder := []string{root.ID, reply1.ID, reply2.ID}
		if len(conv.Messages) != len(wantOrder) {
			t.Fatalf("ResolveThread() returned %d messages, want %d", len(conv.Messages), len(wantOrder))
		}
		for i, id := range wantOrder {
			if conv.Messages[i].ID != id {
				t.Errorf("ResolveThread() message[%d] = %v, want %v", i, conv.Messages[i].ID, id)
			}
		}
	})

	t.Run("duplicate roots collapsed", func(t *testing.T) {
		dupRoot := testutil.CreateMessage(t, env.msgRepo, teacher, student, "Exam", "Next week", base)
		// a retried fan-out left two identical rows in the thread
		for i := 1; i <= 2; i++ {
			if _, err := env.msgRepo.CreateMessage(ctx, message.Message{
				SenderID:   teacher.ID,
				ReceiverID: null.StringFrom(student.ID),
				Subject:    "Exam",
				Content:    "Next week",
				Kind:       message.KindGeneral,
				ThreadID:   null.StringFrom(dupRoot.ID),
				CreatedAt:  base.Add(time.Duration(i) * time.Second),
			}); err != nil {
				t.Fatalf("CreateMessage(): %v", err)
			}
		}
		conv, err := env.svc.ResolveThread(ctx, student, dupRoot.ID)
		if err != nil {
			t.Fatalf("ResolveThread(): %v", err)
		}
		// the root plus a single surviving duplicate
		if len(conv.Messages) != 2 {
			t.Errorf("ResolveThread() returned %d messages, want 2", len(conv.Messages))
		}
	})

	t.Run("access denied before content", func(t *testing.T) {
		conv, err := env.svc.ResolveThread(ctx, stranger, root.ID)
		if errors.Cause(err) != message.ErrAccessDenied {
			t.Errorf("ResolveThread() error = %v, want %v", err, message.ErrAccessDenied)
		}
		if len(conv.Messages) != 0 {
			t.Errorf("ResolveThread() leaked %d messages to a non-participant", len(conv.Messages))
		}
	})

	t.Run("admin bypass", func(t *testing.T) {
		if _, err := env.svc.ResolveThread(ctx, admin, root.ID); err != nil {
			t.Errorf("ResolveThread(): %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := env.svc.ResolveThread(ctx, admin, "87b273dc-0000-0000-0000-000000000000")
		if errors.Cause(err) != message.ErrNotFound {
			t.Errorf("ResolveThread() error = %v, want %v", err, message.ErrNotFound)
		}
	})
}

func TestParticipantIDs(t *testing.T) {
	msgs := []message.Message{
		{SenderID: "a", ReceiverID: null.StringFrom("b")},
		{SenderID: "b", ReceiverID: null.StringFrom("a")},
		{SenderID: "a", ReceiverID: null.StringFrom("c"), Broadcast: true},
		{SenderID: "d"},
	}
	want := []string{"a", "b", "d"}
	got := message.ParticipantIDs(msgs)
	if len(got) != len(want) {
		t.Fatalf("ParticipantIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParticipantIDs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestServiceParticipants(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)

	base := time.Now().UTC().Add(-time.Hour)
	root := testutil.CreateMessage(t, env.msgRepo, teacher, student, "Trip", "Permission slip needed", base)
	testutil.CreateReply(t, env.msgRepo, root, student, teacher, "Signed!", base.Add(time.Minute))

	participants, err := env.svc.Participants(ctx, teacher, root.ID)
	if err != nil {
		t.Fatalf("Participants(): %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("Participants() returned %d, want 2", len(participants))
	}
	// sender of the root comes first; first occurrence fixes position
	if participants[0].ID != teacher.ID || participants[0].Role != "teacher" {
		t.Errorf("Participants()[0] = (%v, %v)", participants[0].ID, participants[0].Role)
	}
	if participants[1].ID != student.ID || participants[1].Role != "student" {
		t.Errorf("Participants()[1] = (%v, %v)", participants[1].ID, participants[1].Role)
	}
}

func TestServiceMarkRead(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "pwd", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)

	msg := testutil.CreateMessage(t, env.msgRepo, teacher, student, "Trip", "Permission slip needed")

	t.Run("sender cannot mark read", func(t *testing.T) {
		_, err := env.svc.MarkRead(ctx, teacher, msg.ID)
		if errors.Cause(err) != message.ErrAccessDenied {
			t.Errorf("MarkRead() error = %v, want %v", err, message.ErrAccessDenied)
		}
	})

	t.Run("receiver marks read", func(t *testing.T) {
		got, err := env.svc.MarkRead(ctx, student, msg.ID)
		if err != nil {
			t.Fatalf("MarkRead(): %v", err)
		}
		if !got.Read {
			t.Errorf("MarkRead() left message unread")
		}
	})

	t.Run("already read is a no-op", func(t *testing.T) {
		got, err := env.svc.MarkRead(ctx, admin, msg.ID)
		if err != nil {
			t.Fatalf("MarkRead(): %v", err)
		}
		if !got.Read {
			t.Errorf("MarkRead() left message unread")
		}
	})
}

func TestServiceQueryForUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "pwd", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)
	student2 := testutil.CreateUser(t, env.usrRepo, "Student2", "student2", "student2@test.cd", "pwd", []string{user.RoleStudent}, true)
	parent := testutil.CreateParent(t, env.usrRepo, "Parent", "parent", "parent@test.cd", student)

	testutil.CreateMessage(t, env.msgRepo, teacher, student, "Trip", "Permission slip needed")
	read := testutil.CreateMessage(t, env.msgRepo, teacher, student, "Fees", "Reminder")
	testutil.CreateMessage(t, env.msgRepo, student, teacher, "Question", "About the homework")
	testutil.CreateMessage(t, env.msgRepo, teacher, student2, "Grades", "Improving")
	if _, err := env.msgRepo.MarkMessageRead(ctx, read.ID); err != nil {
		t.Fatalf("MarkMessageRead(): %v", err)
	}

	t.Run("student sees own messages with stats", func(t *testing.T) {
		msgs, stats, err := env.svc.QueryForUser(ctx, student)
		if err != nil {
			t.Fatalf("QueryForUser(): %v", err)
		}
		if len(msgs) != 3 {
			t.Errorf("QueryForUser() returned %d messages, want 3", len(msgs))
		}
		want := message.Stats{TotalMessages: 3, UnreadMessages: 1, SentMessages: 1, ReceivedMessages: 2}
		if stats != want {
			t.Errorf("QueryForUser() stats = %+v, want %+v", stats, want)
		}
	})

	t.Run("parent sees children's messages", func(t *testing.T) {
		msgs, _, err := env.svc.QueryForUser(ctx, parent)
		if err != nil {
			t.Fatalf("QueryForUser(): %v", err)
		}
		if len(msgs) != 3 {
			t.Errorf("QueryForUser() returned %d messages, want 3", len(msgs))
		}
	})

	t.Run("admin sees everything", func(t *testing.T) {
		msgs, _, err := env.svc.QueryForUser(ctx, admin)
		if err != nil {
			t.Fatalf("QueryForUser(): %v", err)
		}
		if len(msgs) != 4 {
			t.Errorf("QueryForUser() returned %d messages, want 4", len(msgs))
		}
	})
}

func TestServiceCleanupDuplicates(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "pwd", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Student", "student", "student@test.cd", "pwd", []string{user.RoleStudent}, true)

	base := time.Now().UTC().Add(-time.Hour)
	keep := testutil.CreateMessage(t, env.msgRepo, teacher, student, "Trip", "Permission slip needed", base)
	testutil.CreateMessage(t, env.msgRepo, teacher, student, "Trip", "Permission slip needed", base.Add(time.Minute))
	testutil.CreateMessage(t, env.msgRepo, teacher, student, "Trip", "Permission slip needed", base.Add(2*time.Minute))
	distinct := testutil.CreateMessage(t, env.msgRepo, teacher, student, "Fees", "Reminder", base)

	deleted, err := env.svc.CleanupDuplicates(ctx)
	if err != nil {
		t.Fatalf("CleanupDuplicates(): %v", err)
	}
	if deleted != 2 {
		t.Errorf("CleanupDuplicates() = %d, want 2", deleted)
	}

	msgs, err := env.msgRepo.QueryMessages(ctx, nil)
	if err != nil {
		t.Fatalf("QueryMessages(): %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("%d messages left, want 2", len(msgs))
	}
	for _, m := range msgs {
		if m.ID != keep.ID && m.ID != distinct.ID {
			t.Errorf("CleanupDuplicates() kept the wrong row: %v", m.ID)
		}
	}
}

package config

type WorkerKeyStruct struct {
	PersistProgressQueue  string
	NotifyCompletionQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue:  "persist_progress_queue",
	NotifyCompletionQueue: "notify_completion_queue",
}

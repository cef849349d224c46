package config

type WorkerKeyStruct struct {
	WarmBankCacheQueue string
}

var WorkerKey = &WorkerKeyStruct{
	WarmBankCacheQueue: "warm_bank_cache_queue",
}

package main

import "context"

func (cli *commandLine) cleanupMessages() error {
	deleted, err := cli.msgRepo.DeleteExactDuplicates(context.Background())
	if err != nil {
		return err
	}
	logger.Printf("deleted %d duplicate message(s)\n", deleted)
	return nil
}
